// internal/command/parse_test.go
package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Coil(t *testing.T) {
	cmd, err := Parse("device1", `{"object_type":"coil","address":3,"value":1}`)
	require.NoError(t, err)
	require.Equal(t, Command{Device: "device1", Kind: KindCoil, Address: 3, Value: 1}, cmd)
}

func TestParse_CoilBoolean(t *testing.T) {
	cmd, err := Parse("device1", `{"object_type":"coil","address":0,"value":true}`)
	require.NoError(t, err)
	require.Equal(t, 1, cmd.Value)

	cmd, err = Parse("device1", `{"object_type":"coil","address":0,"value":false}`)
	require.NoError(t, err)
	require.Equal(t, 0, cmd.Value)
}

func TestParse_HoldingRegister(t *testing.T) {
	cmd, err := Parse("device1", `{"object_type":"holding_register","address":10,"value":500}`)
	require.NoError(t, err)
	require.Equal(t, Command{Device: "device1", Kind: KindHoldingRegister, Address: 10, Value: 500}, cmd)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{"bad json", `{bad`, ErrMalformed},
		{"empty", ``, ErrMalformed},
		{"not an object", `[1,2]`, ErrMalformed},
		{"unknown kind", `{"object_type":"input_register","address":1,"value":1}`, ErrUnknownKind},
		{"unknown kind without fields", `{"object_type":"discrete_input"}`, ErrUnknownKind},
		{"missing object_type", `{"address":1,"value":1}`, ErrInvalid},
		{"object_type not string", `{"object_type":5,"address":1,"value":1}`, ErrInvalid},
		{"missing address", `{"object_type":"coil","value":1}`, ErrInvalid},
		{"string address", `{"object_type":"coil","address":"1","value":1}`, ErrInvalid},
		{"fractional address", `{"object_type":"coil","address":1.5,"value":1}`, ErrInvalid},
		{"negative address", `{"object_type":"coil","address":-1,"value":1}`, ErrInvalid},
		{"address too large", `{"object_type":"coil","address":65536,"value":1}`, ErrInvalid},
		{"missing value", `{"object_type":"holding_register","address":1}`, ErrInvalid},
		{"bool register value", `{"object_type":"holding_register","address":1,"value":true}`, ErrInvalid},
		{"register overflow", `{"object_type":"holding_register","address":1,"value":70000}`, ErrInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("d", tc.payload)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParse_SignedRegisterValue(t *testing.T) {
	cmd, err := Parse("d", `{"object_type":"holding_register","address":2,"value":-5}`)
	require.NoError(t, err)
	require.Equal(t, -5, cmd.Value)
}
