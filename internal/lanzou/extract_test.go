package lanzou

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "html block comment removed",
			in:   "keep<!-- var filename = 'stale.zip'; -->keep",
			want: "keepkeep",
		},
		{
			name: "multiline html comment removed",
			in:   "a<!--\nline1\nline2\n-->b",
			want: "ab",
		},
		{
			name: "line comment after comma stripped",
			in:   "'sign':'good', //'sign':'stale'",
			want: "'sign':'good',",
		},
		{
			name: "line comment after semicolon stripped",
			in:   "var a = 1; // old value 2",
			want: "var a = 1;",
		},
		{
			name: "protocol url untouched",
			in:   "var u = 'https://pc.woozooo.com/x';",
			want: "var u = 'https://pc.woozooo.com/x';",
		},
		{
			name: "slashes mid-expression untouched",
			in:   "var r = a // b",
			want: "var r = a // b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripComments(tt.in))
		})
	}
}

func TestStripCommentsHidesStaleAlternatives(t *testing.T) {
	page := `<div class="n_box_3fn">real.zip</div>
<!-- <div class="n_box_3fn">stale.zip</div> -->`
	name, err := ExtractFileName(StripComments(page))
	require.NoError(t, err)
	assert.Equal(t, "real.zip", name)
}

func TestExtractFileNameAlternatives(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{"div style", `<div style="font-size: 30px;text-align: center;">doc.pdf</div>`, "doc.pdf"},
		{"script var", `var filename = 'old.rar';`, "old.rar"},
		{"title suffix", `<title>movie.mp4 - 蓝奏云</title>`, "movie.mp4"},
		{"title plain", `<title>movie.mp4</title>`, "movie.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractFileName(tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFileNameOrderedAlternatives(t *testing.T) {
	// Both shapes present: the earlier pattern wins.
	page := `<div class="n_box_3fn">primary.zip</div>
var filename = 'secondary.zip';`
	got, err := ExtractFileName(page)
	require.NoError(t, err)
	assert.Equal(t, "primary.zip", got)
}

func TestExtractDescriptionAbsentVsEmpty(t *testing.T) {
	_, err := ExtractDescription(`<div>no description block here</div>`)
	assert.ErrorIs(t, err, errNotFound)

	got, err := ExtractDescription(`var file_des = '';`)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestExtractSign(t *testing.T) {
	t.Run("literal", func(t *testing.T) {
		got, err := ExtractSign(`data : { 'action':'downprocess','sign':'AbC123_x','ves':1 },`)
		require.NoError(t, err)
		assert.Equal(t, "AbC123_x", got)
	})

	t.Run("variable reference", func(t *testing.T) {
		page := `var skdklds = 'VGhpcyBpcw';
$.ajax({ data : { 'action':'downprocess','sign':skdklds,'ves':1 } });`
		got, err := ExtractSign(page)
		require.NoError(t, err)
		assert.Equal(t, "VGhpcyBpcw", got)
	})

	t.Run("undeclared variable", func(t *testing.T) {
		_, err := ExtractSign(`data : { 'sign':missing },`)
		require.Error(t, err)
	})

	t.Run("absent", func(t *testing.T) {
		_, err := ExtractSign(`nothing to see`)
		assert.ErrorIs(t, err, errNotFound)
	})
}

func TestExtractFolderAjaxParams(t *testing.T) {
	page := `var pgs;
var ibcmyk = '1757485200';
var _fhefbl = 'bXlmb2xkZXJrZXk';
$.ajax({
	url : '/filemoreajax.php',
	data : { 'lx':2,'fid':123456,'uid':'654321','pg':pgs,'rep':'0','t':ibcmyk,'k':_fhefbl,'up':1 },
});`
	params, err := ExtractFolderAjaxParams(page)
	require.NoError(t, err)
	assert.Equal(t, "123456", params["fid"])
	assert.Equal(t, "654321", params["uid"])
	assert.Equal(t, "2", params["lx"])
	assert.Equal(t, "1757485200", params["t"])
	assert.Equal(t, "bXlmb2xkZXJrZXk", params["k"])
}

func TestExtractFolderAjaxParamsMissing(t *testing.T) {
	_, err := ExtractFolderAjaxParams(`data : { 'fid':1 }`)
	require.Error(t, err)
}

func TestExtractFormHash(t *testing.T) {
	got, err := ExtractFormHash(`<input type="hidden" name="formhash" value="a1b2c3d4">`)
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4", got)
}

func TestExtractIframePath(t *testing.T) {
	got, err := ExtractIframePath(`<iframe class="ifr2" src="/fn?AbCd123" frameborder="0"></iframe>`)
	require.NoError(t, err)
	assert.Equal(t, "/fn?AbCd123", got)
}

func TestAntiBotUnscrambleIsPermutation(t *testing.T) {
	seen := map[int]bool{}
	for _, p := range antiBotUnscramble {
		require.True(t, p >= 1 && p <= 40)
		require.False(t, seen[p], "position %d claimed twice", p)
		seen[p] = true
	}
}

func TestDecodeAntiBotToken(t *testing.T) {
	// Build a challenge whose unscrambled form is the XOR key itself, so the
	// decoded token must be all zero bytes.
	var raw [40]byte
	for i, pos := range antiBotUnscramble {
		raw[i] = antiBotXorKey[pos-1]
	}
	got, err := DecodeAntiBotToken(string(raw[:]))
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000000000000000000000000000", got)
}

func TestDecodeAntiBotTokenRejects(t *testing.T) {
	_, err := DecodeAntiBotToken("short")
	assert.Error(t, err)

	_, err = DecodeAntiBotToken("zz" + antiBotXorKey[2:])
	assert.Error(t, err)
}

func TestExtractAntiBotArg(t *testing.T) {
	page := `<script>var arg1='` + antiBotXorKey + `';</script>`
	got, err := ExtractAntiBotArg(page)
	require.NoError(t, err)
	assert.Equal(t, antiBotXorKey, got)
}
