package storage

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUniqueFilenameAndDatedPath(t *testing.T) {
	now := time.Date(2024, time.June, 5, 9, 4, 3, 0, time.UTC)

	name := UniqueFilename("Quarterly Report.pdf", now, "a1b2c3d4")
	assert.Equal(t, "Quarterly Report_20240605_090403_a1b2c3d4.pdf", name)
	assert.Equal(t, "documents/2024/06/05/Quarterly Report_20240605_090403_a1b2c3d4.pdf", DatedPath(name, now))
	assert.Equal(t, "README_20240605_090403_ffffffff", UniqueFilename("README", now, "ffffffff"))
}

func TestNewSuffix(t *testing.T) {
	s := NewSuffix()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), s)
	assert.NotEqual(t, s, NewSuffix())
}

func TestCleanKey(t *testing.T) {
	k, err := cleanKey("/documents/2024/a.pdf")
	assert.NoError(t, err)
	assert.Equal(t, "documents/2024/a.pdf", k)

	for _, bad := range []string{"", "  ", "documents/../etc/passwd", `documents\a.pdf`} {
		_, err := cleanKey(bad)
		assert.Error(t, err, bad)
	}
}
