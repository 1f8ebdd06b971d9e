package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullableString(t *testing.T) {
	var body struct {
		Projet NullableString `json:"projet"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{}`), &body))
	assert.False(t, body.Projet.Set)

	require.NoError(t, json.Unmarshal([]byte(`{"projet":null}`), &body))
	assert.True(t, body.Projet.Set)
	assert.Nil(t, body.Projet.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"projet":"p1"}`), &body))
	assert.True(t, body.Projet.Set)
	assert.Equal(t, "p1", body.Projet.Val())

	assert.Error(t, json.Unmarshal([]byte(`{"projet":42}`), &body))
}
