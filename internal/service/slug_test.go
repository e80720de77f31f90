package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		author, name, want string
	}{
		{"Acme", "Foo", "acme-foo"},
		{"  Acme  ", "Foo Bar!", "acme-foo-bar"},
		{"Zoë", "Crème Brûlée", "zoe-creme-brulee"},
		{"dev_42", "My--Module", "dev-42-my-module"},
		{"", "", "module"},
		{"日本", "模块", "module"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.author, tt.name), tt.author+"/"+tt.name)
	}
}

func TestUniqueSlug(t *testing.T) {
	t.Parallel()

	taken := map[string]struct{}{"acme-foo": {}, "acme-foo-1": {}}

	assert.Equal(t, "acme-foo-2", UniqueSlug("acme-foo", taken))
	assert.Equal(t, "acme-foo-3", UniqueSlug("acme-foo", taken))
	assert.Equal(t, "other", UniqueSlug("other", taken))
	assert.Equal(t, "other-1", UniqueSlug("other", taken))
	assert.Len(t, taken, 6)
}
