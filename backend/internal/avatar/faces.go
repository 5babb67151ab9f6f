package avatar

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownFace = errors.New("unknown face")

// Face персонаж из экрана выбора
type Face struct {
	ID    string
	Name  string
	Image string
}

// Faces каталог доступных персонажей
var Faces = []Face{
	{ID: "ana", Name: "Ana", Image: "/faces/ana.png"},
	{ID: "john", Name: "John", Image: "/faces/john.png"},
	{ID: "juan", Name: "Juan", Image: "/faces/juan.png"},
	{ID: "yuki", Name: "Yuki", Image: "/faces/yuki.png"},
	{ID: "barto", Name: "Barto", Image: "/faces/barto.png"},
	{ID: "anna", Name: "Anna", Image: "/faces/anna.png"},
}

// ResolveFace принимает id персонажа или путь к картинке и возвращает путь.
// Пустая строка означает аватар без лица.
func ResolveFace(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	for _, face := range Faces {
		if strings.EqualFold(value, face.ID) || value == face.Image {
			return face.Image, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFace, value)
}
