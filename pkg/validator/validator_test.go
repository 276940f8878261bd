package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type roomPayload struct {
	Name    string `json:"name" validate:"required,max=64,roomname"`
	IsGroup bool   `json:"is_group"`
}

type settings struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

func TestValidateStructSuccess(t *testing.T) {
	require.NoError(t, ValidateStruct(roomPayload{Name: "general"}))
}

func TestValidateStructFailures(t *testing.T) {
	err := ValidateStruct(roomPayload{Name: ""})
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Len(t, vErrs, 1)
	require.Equal(t, "roomPayload.name", vErrs[0].Field)
	require.Equal(t, "required", vErrs[0].Tag)
}

func TestRoomNameRejectsControlCharacters(t *testing.T) {
	err := ValidateStruct(roomPayload{Name: "bad\x00room"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "roomname")

	err = ValidateStruct(roomPayload{Name: "   "})
	require.Error(t, err)
}

func TestMapstructureTagNames(t *testing.T) {
	err := ValidateStruct(settings{Port: 0})
	require.Error(t, err)
	require.Contains(t, err.Error(), "settings.port failed on min=1")
}

func TestRegisterValidation(t *testing.T) {
	require.NoError(t, RegisterValidation("lobby", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "lobby"
	}))

	type payload struct {
		Room string `json:"room" validate:"lobby"`
	}

	require.NoError(t, ValidateStruct(payload{Room: "lobby"}))
	require.Error(t, ValidateStruct(payload{Room: "general"}))
}
