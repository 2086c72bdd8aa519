package s3infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseURI(t *testing.T) {
	bucket, key, ok := ParseURI("s3://grainlyyy-abi/abis/DiamondMergedABI.json")
	assert.True(t, ok)
	assert.Equal(t, "grainlyyy-abi", bucket)
	assert.Equal(t, "abis/DiamondMergedABI.json", key)

	for _, in := range []string{"./abis/DiamondMergedABI.json", "s3://bucket", "s3:///key", "s3://bucket/"} {
		_, _, ok := ParseURI(in)
		assert.False(t, ok, in)
	}
}
