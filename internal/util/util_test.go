package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "2曲", NormalizeText("２曲"))
	assert.Equal(t, "あり", NormalizeText("  あり\t"))
	assert.Equal(t, "", NormalizeText("　"))
}

func TestBlank(t *testing.T) {
	assert.True(t, Blank(""))
	assert.True(t, Blank("  \n"))
	assert.False(t, Blank(" a "))
}

func TestVerifyHMAC(t *testing.T) {
	sig := HMACSHA256Hex("secret", "PUT /x\n{}")
	assert.True(t, VerifyHMAC("secret", "PUT /x\n{}", sig))
	assert.False(t, VerifyHMAC("other", "PUT /x\n{}", sig))
	assert.False(t, VerifyHMAC("secret", "PUT /x\n{}", ""))
}
