package lanzou

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Wait before re-issuing a folder-listing page when the server answers
// zt==4 ("refresh and retry", its rate-limit signal). Empirically tuned;
// the protocol documents no minimum.
const folderRetryWait = 1100 * time.Millisecond

// Markers of a dead share target.
var goneMarkers = []string{"文件取消", "文件不存在", "链接已失效"}

// Markers of a password-gated share page.
var passwordMarkers = []string{`id="pwd"`, "输入密码"}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func parseShareURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" || len(strings.Trim(u.Path, "/")) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrURLInvalid, raw)
	}
	return u, nil
}

func shareBase(u *url.URL) string { return u.Scheme + "://" + u.Host }

// GetFileInfoByURL resolves a file share link to its metadata and direct
// download URL. Works without login.
//
// The protocol is multi-step: the share page alone never carries the binary
// URL. Password-gated shares need a signed token posted with the password
// and then a *re-fetch* of the share page (only the second,
// cookie-authenticated fetch exposes name/size/time/description). Public
// shares go through an intermediate iframe whose script holds the token.
// Either way the AJAX endpoint returns a decoy pre-redirect URL which
// resolveDirectURL turns into the real one.
func (c *Client) GetFileInfoByURL(ctx context.Context, rawURL, password string) (*FileDetail, error) {
	u, err := parseShareURL(rawURL)
	if err != nil {
		return nil, err
	}
	base := shareBase(u)

	page, err := c.session.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	text := StripComments(string(page))
	if containsAny(text, goneMarkers) {
		return nil, ErrItemGone
	}

	needPwd := containsAny(text, passwordMarkers)
	if needPwd && password == "" {
		// No further requests: retrying without new user input is pointless.
		return nil, ErrPasswordMissing
	}

	var down downDTO
	detailText := text

	if needPwd {
		sign, err := ExtractSign(text)
		if err != nil {
			return nil, fmt.Errorf("%w: share sign: %v", ErrFailed, err)
		}
		body, err := c.session.PostForm(ctx, base+"/ajaxm.php", map[string]string{
			"action": "downprocess",
			"sign":   sign,
			"p":      password,
		})
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &down); err != nil {
			return nil, fmt.Errorf("%w: download payload: %v", ErrFailed, err)
		}
		if down.Zt != 1 {
			return nil, fmt.Errorf("%w: %s", ErrPasswordWrong, down.Inf)
		}
		// First fetch lacked the metadata; the post set a cookie that
		// unlocks it on a second fetch.
		page2, err := c.session.Get(ctx, rawURL, nil)
		if err != nil {
			return nil, err
		}
		detailText = StripComments(string(page2))
	} else {
		ifr, err := ExtractIframePath(text)
		if err != nil {
			return nil, fmt.Errorf("%w: download iframe: %v", ErrFailed, err)
		}
		fpage, err := c.session.Get(ctx, base+ifr, nil)
		if err != nil {
			return nil, err
		}
		ftext := StripComments(string(fpage))
		sign, err := ExtractSign(ftext)
		if err != nil {
			return nil, fmt.Errorf("%w: iframe sign: %v", ErrFailed, err)
		}
		body, err := c.session.PostForm(ctx, base+"/ajaxm.php", map[string]string{
			"action": "downprocess",
			"signs":  "?ctdf",
			"sign":   sign,
			"ves":    "1",
		})
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &down); err != nil {
			return nil, fmt.Errorf("%w: download payload: %v", ErrFailed, err)
		}
		if down.Zt != 1 {
			return nil, fmt.Errorf("%w: ajax zt=%d: %s", ErrFailed, int(down.Zt), down.Inf)
		}
	}

	detail := &FileDetail{}
	if name, err := ExtractFileName(detailText); err == nil {
		detail.Name = name
	} else if down.Inf != "" {
		detail.Name = down.Inf
	} else {
		return nil, fmt.Errorf("%w: file name not found", ErrFailed)
	}
	detail.Size, _ = ExtractFileSize(detailText)
	detail.Time, _ = ExtractFileTime(detailText)
	detail.Description, _ = ExtractDescription(detailText)

	direct, err := c.resolveDirectURL(ctx, down.Dom+"/file/"+down.URL)
	if err != nil {
		return nil, err
	}
	detail.URL = direct
	return detail, nil
}

// resolveDirectURL follows the anti-hotlinking indirection: fetch the decoy
// pre-redirect URL with redirects disabled and read the real URL from the
// Location header. Requesting the direct URL without hitting the decoy first
// trips the service's traffic-anomaly detector.
//
// The decoy host sometimes interposes a challenge page instead of the
// redirect; its cookie is derived offline from page constants and the fetch
// is retried once.
func (c *Client) resolveDirectURL(ctx context.Context, fakeURL string) (string, error) {
	status, loc, body, err := c.session.FetchNoRedirect(ctx, fakeURL)
	if err != nil {
		return "", err
	}
	if status >= 300 && status < 400 && loc != "" {
		return loc, nil
	}

	arg, aerr := ExtractAntiBotArg(string(body))
	if aerr != nil {
		return "", fmt.Errorf("%w: no redirect and no challenge (status %d)", ErrFailed, status)
	}
	token, err := DecodeAntiBotToken(arg)
	if err != nil {
		return "", fmt.Errorf("%w: challenge decode: %v", ErrFailed, err)
	}
	u, err := url.Parse(fakeURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailed, err)
	}
	c.session.SetCookies(u, []*http.Cookie{{Name: "acw_sc__v2", Value: token}})

	status, loc, _, err = c.session.FetchNoRedirect(ctx, fakeURL)
	if err != nil {
		return "", err
	}
	if status >= 300 && status < 400 && loc != "" {
		return loc, nil
	}
	return "", fmt.Errorf("%w: challenge not accepted (status %d)", ErrFailed, status)
}

// GetFolderInfoByURL resolves a folder share link and lists its files by
// paginating the content endpoint. Works without login.
//
// Page status codes are endpoint-specific: 1 content-with-more, 2 terminal,
// 3 wrong password, 4 refresh-and-retry (rate limit, not an error).
func (c *Client) GetFolderInfoByURL(ctx context.Context, rawURL, password string) (*FolderDetail, error) {
	u, err := parseShareURL(rawURL)
	if err != nil {
		return nil, err
	}
	base := shareBase(u)

	page, err := c.session.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	text := StripComments(string(page))
	if containsAny(text, goneMarkers) {
		return nil, ErrItemGone
	}
	if containsAny(text, passwordMarkers) && password == "" {
		return nil, ErrPasswordMissing
	}

	params, err := ExtractFolderAjaxParams(text)
	if err != nil {
		return nil, fmt.Errorf("%w: folder ajax params: %v", ErrFailed, err)
	}

	detail := &FolderDetail{}
	if name, err := ExtractFolderName(text); err == nil {
		detail.Name = name
	}
	detail.Description, _ = ExtractDescription(text)

	for pg := 1; ; {
		form := map[string]string{
			"lx":  params["lx"],
			"fid": params["fid"],
			"uid": params["uid"],
			"pg":  strconv.Itoa(pg),
			"rep": "0",
			"t":   params["t"],
			"k":   params["k"],
			"up":  "1",
			"ls":  "1",
			"pwd": password,
		}

		var resp baseResp
		err := retryNetwork(func() error {
			body, e := c.session.PostForm(ctx, base+"/filemoreajax.php", form)
			if e != nil {
				return e
			}
			resp = baseResp{}
			if e := json.Unmarshal(body, &resp); e != nil {
				return fmt.Errorf("%w: folder page %d: %v", ErrFailed, pg, e)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		switch resp.Zt {
		case 1, 2:
			var dtos []shareListDTO
			if !emptyRaw(resp.Text) {
				if err := json.Unmarshal(resp.Text, &dtos); err != nil {
					return nil, fmt.Errorf("%w: folder page %d: %v", ErrFailed, pg, err)
				}
			}
			for _, d := range dtos {
				detail.Files = append(detail.Files, ShareFile{
					Name: d.NameAll,
					Size: d.Size,
					Time: d.Time,
					URL:  base + "/" + d.ID,
				})
			}
			if resp.Zt == 2 || len(dtos) == 0 {
				return detail, nil
			}
			pg++
		case 3:
			return nil, ErrPasswordWrong
		case 4:
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrFailed, ctx.Err())
			case <-time.After(folderRetryWait):
			}
			// same page, re-issued
		default:
			return nil, fmt.Errorf("%w: folder listing zt=%d", ErrFailed, int(resp.Zt))
		}
	}
}
