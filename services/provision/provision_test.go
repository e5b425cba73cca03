package provision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"clinic-booking/services/provision"
)

func TestParseLegacyCourse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		sessions int
		masks    int
		ok       bool
	}{
		{"plain course", "hydra facial course 10", 10, 0, true},
		{"course with masks", "whitening course 10/3", 10, 3, true},
		{"spaced slash", "laser Course 5 / 2", 5, 2, true},
		{"case insensitive", "COURSE 8", 8, 0, true},
		{"no course marker", "hydra facial", 0, 0, false},
		{"zero sessions rejected", "course 0", 0, 0, false},
		{"embedded in sentence", "paid for course 12, starts monday", 12, 0, true},
		{"word boundary required", "concourse 10", 0, 0, false},
		{"three digits too long", "course 100", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, masks, ok := provision.ParseLegacyCourse(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.sessions, sessions)
			assert.Equal(t, tt.masks, masks)
		})
	}
}
