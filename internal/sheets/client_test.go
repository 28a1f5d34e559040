package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{10, "K"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, columnLetter(tt.index), "index %d", tt.index)
	}
}

func TestToInterfaces(t *testing.T) {
	out := toInterfaces([]string{"a", "", "c"})
	assert.Equal(t, []interface{}{"a", "", "c"}, out)
}
