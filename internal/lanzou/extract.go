package lanzou

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The extractors are pure functions over page text. Every one of them runs
// against comment-stripped markup: the service ships stale, commented-out
// alternate implementations of its own pages, and those must never produce
// matches. Fields the service renders in more than one shape are matched
// with ordered alternatives; the first non-empty match wins. Absence is
// reported as errNotFound so callers can tell "no description" from
// "extraction broke".

var htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// StripComments removes <!-- --> blocks and trailing //-style fragments.
// A // fragment is stripped only when the code before it ends in ',' or ';',
// which is how the service leaves dead alternatives behind; this keeps
// protocol URLs ("https://...") intact.
func StripComments(text string) string {
	text = htmlCommentRe.ReplaceAllString(text, "")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return strings.Join(lines, "\n")
}

func stripLineComment(line string) string {
	idx := 0
	for {
		rel := strings.Index(line[idx:], "//")
		if rel < 0 {
			return line
		}
		at := idx + rel
		// "://" is a URL, not a comment.
		if at > 0 && line[at-1] == ':' {
			idx = at + 2
			continue
		}
		head := strings.TrimRight(line[:at], " \t")
		if strings.HasSuffix(head, ",") || strings.HasSuffix(head, ";") {
			return head
		}
		idx = at + 2
	}
}

func extractFirst(text string, pats []*regexp.Regexp) (string, error) {
	for _, p := range pats {
		if m := p.FindStringSubmatch(text); len(m) > 1 && m[1] != "" {
			return strings.TrimSpace(m[1]), nil
		}
	}
	return "", errNotFound
}

var formHashRe = []*regexp.Regexp{
	regexp.MustCompile(`name="formhash"\s+value="([0-9a-fA-F]+)"`),
	regexp.MustCompile(`formhash=([0-9a-fA-F]{8,})`),
}

// ExtractFormHash pulls the hidden anti-CSRF token replayed on form posts.
func ExtractFormHash(text string) (string, error) {
	return extractFirst(text, formHashRe)
}

var fileNameRe = []*regexp.Regexp{
	regexp.MustCompile(`<div class="n_box_3fn"[^>]*>([^<]+)</div>`),
	regexp.MustCompile(`<div style="font-size: 30px;[^"]*">([^<]+)</div>`),
	regexp.MustCompile(`var filename = '([^']+)';`),
	regexp.MustCompile(`<title>([^<]+?)(?: - 蓝奏云)?</title>`),
}

// ExtractFileName resolves the shared file's display name. The service
// renders it in a div on new-style pages and in an inline script variable on
// old-style ones.
func ExtractFileName(text string) (string, error) {
	return extractFirst(text, fileNameRe)
}

var fileSizeRe = []*regexp.Regexp{
	regexp.MustCompile(`文件大小[：:]</span>([^<]+)<`),
	regexp.MustCompile(`大小[：:]([0-9.,]+\s?[BKMG])`),
}

func ExtractFileSize(text string) (string, error) {
	return extractFirst(text, fileSizeRe)
}

var fileTimeRe = []*regexp.Regexp{
	regexp.MustCompile(`上传时间[：:]</span>([^<]+)<`),
	regexp.MustCompile(`class="n_file_infos">([^<]+)</span>`),
}

func ExtractFileTime(text string) (string, error) {
	return extractFirst(text, fileTimeRe)
}

var descriptionRe = []*regexp.Regexp{
	regexp.MustCompile(`文件描述[：:]?</span><br>\s*([^<]*?)\s*</td>`),
	regexp.MustCompile(`var file_des = '([^']*)';`),
	regexp.MustCompile(`<span class="n_box_des">([^<]*)</span>`),
}

// ExtractDescription returns errNotFound when the page carries no
// description block at all, as opposed to an empty description.
func ExtractDescription(text string) (string, error) {
	for _, p := range descriptionRe {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), nil
		}
	}
	return "", errNotFound
}

var iframeRe = []*regexp.Regexp{
	regexp.MustCompile(`<iframe[^>]*src="(/fn\?[^"]+)"`),
	regexp.MustCompile(`<iframe[^>]*src="(/dfn\?[^"]+)"`),
}

// ExtractIframePath finds the intermediate download iframe URL (relative).
func ExtractIframePath(text string) (string, error) {
	return extractFirst(text, iframeRe)
}

var (
	signLiteralRe = regexp.MustCompile(`'sign'\s*:\s*'([^']+)'`)
	signVarRe     = regexp.MustCompile(`'sign'\s*:\s*([A-Za-z_$][\w$]*)`)
)

// ExtractSign pulls the signed token posted to the download AJAX endpoint.
// The page sometimes embeds it as a literal inside the data block and
// sometimes references a separately declared variable, which must be
// substituted before use.
func ExtractSign(text string) (string, error) {
	if m := signLiteralRe.FindStringSubmatch(text); len(m) > 1 {
		return m[1], nil
	}
	if m := signVarRe.FindStringSubmatch(text); len(m) > 1 {
		if v, err := resolveScriptVar(text, m[1]); err == nil {
			return v, nil
		}
		return "", fmt.Errorf("%w: sign variable %q not declared", errMalformed, m[1])
	}
	return "", errNotFound
}

// resolveScriptVar finds `var name = '...';` declarations.
func resolveScriptVar(text, name string) (string, error) {
	re := regexp.MustCompile(`var\s+` + regexp.QuoteMeta(name) + `\s*=\s*'([^']*)'`)
	if m := re.FindStringSubmatch(text); len(m) > 1 {
		return m[1], nil
	}
	return "", errNotFound
}

var (
	folderFidRe = regexp.MustCompile(`'fid'\s*:\s*(\d+)`)
	folderUidRe = regexp.MustCompile(`'uid'\s*:\s*'(\d+)'`)
	folderLxRe  = regexp.MustCompile(`'lx'\s*:\s*(\d+)`)
	folderTRe   = regexp.MustCompile(`'t'\s*:\s*([A-Za-z_$][\w$]*)`)
	folderKRe   = regexp.MustCompile(`'k'\s*:\s*([A-Za-z_$][\w$]*)`)
)

// ExtractFolderAjaxParams gathers the parameters the folder share page's
// script posts to the content-listing endpoint. t and k are declared as
// separate variables and substituted here.
func ExtractFolderAjaxParams(text string) (map[string]string, error) {
	out := map[string]string{}
	for key, re := range map[string]*regexp.Regexp{"fid": folderFidRe, "uid": folderUidRe, "lx": folderLxRe} {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return nil, fmt.Errorf("%w: folder ajax param %q", errNotFound, key)
		}
		out[key] = m[1]
	}
	for key, re := range map[string]*regexp.Regexp{"t": folderTRe, "k": folderKRe} {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return nil, fmt.Errorf("%w: folder ajax param %q", errNotFound, key)
		}
		v, err := resolveScriptVar(text, m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: folder ajax var %q not declared", errMalformed, m[1])
		}
		out[key] = v
	}
	return out, nil
}

var folderNameRe = []*regexp.Regexp{
	regexp.MustCompile(`<div class="user-title">([^<]+)</div>`),
	regexp.MustCompile(`var folder_name = '([^']+)';`),
}

func ExtractFolderName(text string) (string, error) {
	return extractFirst(text, folderNameRe)
}

// ---- anti-bot challenge --------------------------------------------------

var antiBotArgRe = regexp.MustCompile(`var arg1\s*=\s*'([0-9A-Fa-f]{40})'`)

// ExtractAntiBotArg finds the scrambled challenge string on the traffic
// checkpoint page the service serves in front of download hosts.
func ExtractAntiBotArg(text string) (string, error) {
	if m := antiBotArgRe.FindStringSubmatch(text); len(m) > 1 {
		return m[1], nil
	}
	return "", errNotFound
}

// Fixed constants of the checkpoint script. Lifted verbatim from the page's
// obfuscated JS; not derived at runtime.
var antiBotUnscramble = [40]int{
	15, 35, 29, 24, 33, 16, 1, 38, 10, 9,
	19, 31, 40, 27, 22, 23, 25, 13, 6, 11,
	39, 18, 20, 8, 14, 21, 32, 26, 2, 30,
	7, 4, 17, 5, 3, 28, 34, 37, 12, 36,
}

const antiBotXorKey = "3000176000856006061501533003690027800375"

// DecodeAntiBotToken turns the scrambled challenge into the cookie value the
// checkpoint expects: a fixed 40-slot positional un-scramble followed by a
// hex-XOR of byte pairs against a fixed key.
func DecodeAntiBotToken(raw string) (string, error) {
	if len(raw) != 40 {
		return "", fmt.Errorf("%w: challenge length %d", errMalformed, len(raw))
	}
	var unscrambled [40]byte
	for i, pos := range antiBotUnscramble {
		unscrambled[pos-1] = raw[i]
	}
	var b strings.Builder
	b.Grow(40)
	for i := 0; i < 40; i += 2 {
		v, err := strconv.ParseUint(string(unscrambled[i:i+2]), 16, 8)
		if err != nil {
			return "", fmt.Errorf("%w: challenge byte %d: %v", errMalformed, i/2, err)
		}
		k, _ := strconv.ParseUint(antiBotXorKey[i:i+2], 16, 8)
		fmt.Fprintf(&b, "%02x", byte(v)^byte(k))
	}
	return b.String(), nil
}
