package pyast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUTF8(t *testing.T) {
	text, enc, base, err := Decode([]byte("import os\n"))
	require.NoError(t, err)
	assert.Equal(t, "import os\n", string(text))
	assert.Equal(t, EncodingUTF8, enc)
	assert.Zero(t, base)
}

func TestDecodeBOM(t *testing.T) {
	src := append([]byte{0xEF, 0xBB, 0xBF}, "import os\n"...)
	text, enc, base, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, "import os\n", string(text))
	assert.Equal(t, EncodingUTF8BOM, enc)
	assert.Equal(t, 3, base)

	f, err := Parse("bom.py", src)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Statements[0].Start, "offsets refer to the raw file")
}

func TestDecodeLatin1Cookie(t *testing.T) {
	src := []byte("# -*- coding: latin-1 -*-\nname = '\xe9'\nimport os\n")
	text, enc, _, err := Decode(src)
	require.NoError(t, err)
	assert.Contains(t, string(text), "name = 'é'")
	assert.NotEqual(t, EncodingUTF8, enc)

	f, err := Parse("latin.py", src)
	require.NoError(t, err)
	assert.False(t, f.Editable())
	require.Len(t, f.Imports, 1)
}

func TestDecodeCookieOnSecondLine(t *testing.T) {
	src := []byte("#!/usr/bin/env python\n# vim: set fileencoding=cp1252 :\nx = '\x80'\n")
	_, enc, _, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", enc)
}

func TestDecodeCookieIgnoredAfterCode(t *testing.T) {
	assert.Equal(t, "", codingCookie([]byte("import os\n# coding: latin-1\n")))
}

func TestDecodeInvalidUTF8(t *testing.T) {
	_, _, _, err := Decode([]byte("x = '\xff\xfe'\n"))
	assert.Error(t, err)

	_, err = Parse("bad.py", []byte("x = '\xff\xfe'\n"))
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestDecodeUnknownCookie(t *testing.T) {
	_, _, _, err := Decode([]byte("# coding: klingon\nx = 1\n"))
	assert.Error(t, err)
}
