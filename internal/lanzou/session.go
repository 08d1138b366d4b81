package lanzou

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"lanpan/internal/logging"
)

// Default header set attached to every request. Accept-Language is
// load-bearing: without it the service serves different markup and the
// extractors stop matching.
const (
	userAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	acceptLang = "zh-CN,zh;q=0.9,en;q=0.8"
)

// Session is the stateful HTTP layer shared by every Client operation:
// one cookie jar, shared default headers, per-request timeout, and a single
// point where transport failures become ErrNetwork. It never retries on its
// own; retry policy belongs to callers that need it.
type Session struct {
	std     *resty.Client // follows redirects, has the request timeout
	noRedir *resty.Client // surfaces 30x responses instead of following them
	stream  *resty.Client // no timeout; long body reads are ctx-bounded
	jar     http.CookieJar
	referer string
	log     logging.Logger
}

// NewSession builds a Session with a fresh cookie jar. referer is sent with
// every request (the service rejects some AJAX calls without it).
func NewSession(timeout time.Duration, referer string, log logging.Logger) *Session {
	jar, _ := cookiejar.New(nil)

	headers := map[string]string{
		"User-Agent":      userAgent,
		"Accept-Language": acceptLang,
		"Referer":         referer,
	}

	std := resty.New().
		SetCookieJar(jar).
		SetTimeout(timeout).
		SetHeaders(headers)

	noRedir := resty.New().
		SetCookieJar(jar).
		SetTimeout(timeout).
		SetHeaders(headers).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}))

	stream := resty.New().
		SetCookieJar(jar).
		SetHeaders(headers)

	return &Session{
		std:     std,
		noRedir: noRedir,
		stream:  stream,
		jar:     jar,
		referer: referer,
		log:     log,
	}
}

func netFail(err error) error {
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// Get fetches rawURL with optional query parameters and returns the body.
func (s *Session) Get(ctx context.Context, rawURL string, query map[string]string) ([]byte, error) {
	req := s.std.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	res, err := req.Get(rawURL)
	if err != nil {
		return nil, netFail(err)
	}
	s.log.Debug(ctx, "GET", "url", rawURL, "status", res.StatusCode())
	return res.Body(), nil
}

// PostForm sends a form-encoded POST and returns the body.
func (s *Session) PostForm(ctx context.Context, rawURL string, form map[string]string) ([]byte, error) {
	res, err := s.std.R().
		SetContext(ctx).
		SetFormData(form).
		Post(rawURL)
	if err != nil {
		return nil, netFail(err)
	}
	s.log.Debug(ctx, "POST", "url", rawURL, "status", res.StatusCode())
	return res.Body(), nil
}

// FetchNoRedirect issues a GET with redirect following disabled and returns
// the response status, Location header (empty when none) and body. Used for
// the decoy pre-redirect URL whose Location header carries the real binary
// URL.
func (s *Session) FetchNoRedirect(ctx context.Context, rawURL string) (status int, location string, body []byte, err error) {
	res, err := s.noRedir.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return 0, "", nil, netFail(err)
	}
	return res.StatusCode(), res.Header().Get("Location"), res.Body(), nil
}

// OpenStream starts a body download from offset (a Range request when
// offset > 0). Returns the reader, the byte position the stream actually
// starts at (0 when the server ignored the Range header) and the total size
// of the full entity (0 when the server sends no Content-Length). The reader
// is not subject to the session timeout; cancel ctx to abort.
//
// Resuming a file that is already complete yields a 416 whose Content-Range
// names the entity size; when that size equals offset the stream is an
// empty success instead of an error.
func (s *Session) OpenStream(ctx context.Context, rawURL string, offset int64) (rc io.ReadCloser, start, total int64, err error) {
	req := s.stream.R().SetContext(ctx).SetDoNotParseResponse(true)
	if offset > 0 {
		req.SetHeader("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}
	res, err := req.Get(rawURL)
	if err != nil {
		return nil, 0, 0, netFail(err)
	}
	code := res.StatusCode()
	if offset > 0 && code == http.StatusRequestedRangeNotSatisfiable {
		cr := res.RawResponse.Header.Get("Content-Range")
		res.RawBody().Close()
		size, perr := strconv.ParseInt(strings.TrimPrefix(cr, "bytes */"), 10, 64)
		if perr == nil && size == offset {
			return http.NoBody, offset, offset, nil
		}
		return nil, 0, 0, fmt.Errorf("%w: range at %d unsatisfiable (%q)", ErrFailed, offset, cr)
	}
	if code != http.StatusOK && code != http.StatusPartialContent {
		res.RawBody().Close()
		return nil, 0, 0, fmt.Errorf("%w: unexpected status %d", ErrFailed, code)
	}
	start = offset
	if code == http.StatusOK {
		// Server ignored the Range header; the stream restarts from zero.
		start = 0
	}
	if cl := res.RawResponse.ContentLength; cl >= 0 {
		total = start + cl
	}
	return res.RawBody(), start, total, nil
}

// UploadMultipart posts one file plus form fields as multipart/form-data.
func (s *Session) UploadMultipart(ctx context.Context, rawURL string, fields map[string]string, fileField, fileName string, r io.Reader) ([]byte, error) {
	res, err := s.stream.R().
		SetContext(ctx).
		SetFormData(fields).
		SetFileReader(fileField, fileName, r).
		Post(rawURL)
	if err != nil {
		return nil, netFail(err)
	}
	s.log.Debug(ctx, "upload POST", "url", rawURL, "status", res.StatusCode(), "name", fileName)
	return res.Body(), nil
}

// SetCookies attaches cookies for u, e.g. a previously saved login cookie
// set or the decoded anti-bot cookie.
func (s *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.jar.SetCookies(u, cookies)
}

// SetCookieString parses "k1=v1; k2=v2" and attaches the cookies for u.
func (s *Session) SetCookieString(u *url.URL, raw string) {
	header := http.Header{}
	header.Add("Cookie", raw)
	req := http.Request{Header: header}
	s.SetCookies(u, req.Cookies())
}

// Cookies returns the jar's cookies for u, e.g. to persist a credential
// login for later cookie logins.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	return s.jar.Cookies(u)
}

// CookieString renders the jar's cookies for u as "k1=v1; k2=v2".
func (s *Session) CookieString(u *url.URL) string {
	var b []byte
	for i, c := range s.jar.Cookies(u) {
		if i > 0 {
			b = append(b, "; "...)
		}
		b = append(b, c.Name...)
		b = append(b, '=')
		b = append(b, c.Value...)
	}
	return string(b)
}

// Reset drops all cookies. Used by logout.
func (s *Session) Reset() {
	jar, _ := cookiejar.New(nil)
	s.jar = jar
	s.std.SetCookieJar(jar)
	s.noRedir.SetCookieJar(jar)
	s.stream.SetCookieJar(jar)
}
