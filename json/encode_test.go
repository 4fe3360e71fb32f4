package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReencode(t *testing.T) {
	tests := []struct {
		in  string
		out string
	}{
		{in: `{"a":1}`, out: `{"a": 1}`},
		{in: `{"b":2,"a":[1,2.50,{"c":null}]}`, out: `{"b": 2, "a": [1, 2.5, {"c": null}]}`},
		{in: `{"a":1,"b":2,"a":3}`, out: `{"a": 3, "b": 2}`},
		{in: `{"o":{"x":1,"x":{"y":2}}}`, out: `{"o": {"x": {"y": 2}}}`},
		{in: `[1E5,1.0,-0,-0.0,0.0001,0.00001,1e16,123456789012345678901234567890,1e400,-1e400,1e-400,3.14]`,
			out: `[100000.0, 1.0, 0, -0.0, 0.0001, 1e-05, 1e+16, 123456789012345678901234567890, Infinity, -Infinity, 0.0, 3.14]`},
		{in: ` {"t" : true , "f":false} `, out: `{"t": true, "f": false}`},
		{in: `"x"`, out: `"x"`},
		{in: `[]`, out: `[]`},
		{in: `{}`, out: `{}`},
		{in: `{"s":"café \"q\" \\ /\n"}`, out: `{"s": "caf\u00e9 \"q\" \\ /\n"}`},
		{in: `{"s":"café"}`, out: `{"s": "caf\u00e9"}`},
		{in: `{"s":"😀"}`, out: `{"s": "\ud83d\ude00"}`},
		{in: `{"s":"\u0001\u007f"}`, out: `{"s": "\u0001\u007f"}`},
		{in: `{"s":"<&>"}`, out: `{"s": "<&>"}`},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			out, err := Reencode([]byte(test.in))
			require.NoError(t, err)
			assert.Equal(t, test.out, string(out))
		})
	}
}

func TestReencodeErrors(t *testing.T) {
	for _, in := range []string{
		``,
		`{`,
		`{"a":}`,
		`{"a":1}{"b":2}`,
		`{"a":1} x`,
		`not json`,
		`[1,]`,
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Reencode([]byte(in))
			assert.Error(t, err)
		})
	}
}
