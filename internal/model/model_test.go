package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Output
		want string
	}{
		{"text", TextOutput("こんにちは"), `{"text":"こんにちは"}`},
		{"items", ItemsOutput([]OutputItem{{Title: "a", Body: "b"}}), `{"items":[{"title":"a","body":"b"}]}`},
		{"nil items become empty list", ItemsOutput(nil), `{"items":[]}`},
		{"zero value", Output{}, `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}

	_, err := json.Marshal(Output{Kind: "audio"})
	assert.Error(t, err)
}

func TestOutput_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Output
		wantErr bool
	}{
		{name: "text", in: `{"text":"x"}`, want: TextOutput("x")},
		{name: "empty text is still text", in: `{"text":""}`, want: TextOutput("")},
		{name: "items win over text", in: `{"text":"x","items":[{"title":"t","body":"b"}]}`, want: ItemsOutput([]OutputItem{{Title: "t", Body: "b"}})},
		{name: "null", in: `null`, want: Output{}},
		{name: "neither key", in: `{"html":"<p>"}`, wantErr: true},
		{name: "wrong text type", in: `{"text":1}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Output
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringifyValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{true, "true"},
		{float64(3), "3"},
		{1.5, "1.5"},
		{42, "42"},
		{int64(-7), "-7"},
		{[]interface{}{"a", 1.0, false}, "a,1,false"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StringifyValue(tt.in), "StringifyValue(%#v)", tt.in)
	}
}

func TestToolEnums(t *testing.T) {
	assert.True(t, ToolTypeText.Valid())
	assert.False(t, ToolType("audio").Valid())
	assert.True(t, ToolStatusDraft.Valid())
	assert.False(t, ToolStatus("archived").Valid())
	assert.True(t, FieldKindSwitch.Valid())
	assert.False(t, FieldKind("radio").Valid())

	assert.True(t, (&Tool{Status: ToolStatusPublic}).IsPublic())
	assert.False(t, (&Tool{Status: ToolStatusDraft}).IsPublic())
}
