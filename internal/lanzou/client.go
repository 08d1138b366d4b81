package lanzou

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lanpan/internal/logging"
)

// Endpoint paths and the numeric task discriminators of the management AJAX
// endpoint. The discriminator values are part of the reverse-engineered wire
// protocol; do not renumber.
const (
	defaultBaseURL = "https://pc.woozooo.com"

	taskListFiles   = 5
	taskListDirs    = 47
	taskMkdir       = 2
	taskDeleteDir   = 3
	taskFolderInfo  = 4 // also sets folder name/description
	taskDeleteFile  = 6
	taskSetFileDesc = 11
	taskDirPasswd   = 16
	taskDirShare    = 18
	taskAllDirs     = 19
	taskMoveFile    = 20
	taskFileShare   = 22
	taskFilePasswd  = 23
	taskRenameFile  = 46
)

// Response markers. The service reports auth state only through page text.
const (
	loginOKMarker       = "登录成功"
	loginRequiredMarker = "请先登录"
	actionOKMarker      = "成功"
)

const filePageSize = 18

// Options tune upload behavior; both auto settings are optional.
type Options struct {
	ChunkCap        int64 // single-file size cap enforced by the remote
	AutoPassword    string
	AutoDescription string
}

// Client is the API facade. It owns the session/cookie state exclusively:
// only Login/LoginByCookie populate it and only Logout clears it; every
// other call just reads it.
//
// Cookie state is read-mostly and shared by concurrent transfer workers
// without a lock; independent requests through the underlying HTTP client
// are safe. Login/Logout must not run concurrently with active jobs; the
// caller sequences that (the CLI does it by finishing jobs first).
type Client struct {
	session  *Session
	log      logging.Logger
	base     string
	opts     Options
	loggedIn bool
}

type Option func(*Client)

// WithBaseURL points the client at a different service root (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.base = strings.TrimRight(u, "/") }
}

func WithOptions(o Options) Option {
	return func(c *Client) { c.opts = o }
}

func NewClient(timeout time.Duration, log logging.Logger, opts ...Option) *Client {
	if log == nil {
		log = logging.Discard()
	}
	c := &Client{
		base: defaultBaseURL,
		log:  log,
		opts: Options{ChunkCap: 100 << 20},
	}
	for _, o := range opts {
		o(c)
	}
	c.session = NewSession(timeout, c.base+"/mydisk.php", log)
	return c
}

// Session exposes the HTTP layer for the few callers (transfer workers)
// that stream bodies directly.
func (c *Client) Session() *Session { return c.session }

func (c *Client) loginURL() string  { return c.base + "/account.php" }
func (c *Client) diskURL() string   { return c.base + "/mydisk.php" }
func (c *Client) taskURL() string   { return c.base + "/doupload.php" }
func (c *Client) uploadURL() string { return c.base + "/fileup.php" }

// doTask posts one management call (form-encoded, numeric task code) and
// decodes the common response envelope.
func (c *Client) doTask(ctx context.Context, task int, form map[string]string) (*baseResp, error) {
	if form == nil {
		form = map[string]string{}
	}
	form["task"] = strconv.Itoa(task)
	body, err := c.session.PostForm(ctx, c.taskURL(), form)
	if err != nil {
		return nil, err
	}
	var resp baseResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: task %d response: %v", ErrFailed, task, err)
	}
	return &resp, nil
}

func (r *baseResp) textInt64() (int64, error) {
	var n intString
	if err := json.Unmarshal(r.Text, &n); err != nil {
		return 0, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return int64(n), nil
}

// LoggedIn reports the auth state machine's current state.
func (c *Client) LoggedIn() bool { return c.loggedIn }

func (c *Client) requireLogin() error {
	if !c.loggedIn {
		return ErrNotLoggedIn
	}
	return nil
}

// Login authenticates with credentials: fetch the login page, extract the
// hidden form token, post credentials with it, and look for the success
// marker. Idempotent: calling it while logged in simply re-authenticates.
func (c *Client) Login(ctx context.Context, username, password string) error {
	page, err := c.session.Get(ctx, c.loginURL(), map[string]string{"action": "login"})
	if err != nil {
		return err
	}
	hash, err := ExtractFormHash(StripComments(string(page)))
	if err != nil {
		return fmt.Errorf("%w: login form token: %v", ErrFailed, err)
	}

	body, err := c.session.PostForm(ctx, c.loginURL(), map[string]string{
		"action":   "login",
		"task":     "login",
		"formhash": hash,
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	if !strings.Contains(string(body), loginOKMarker) {
		c.loggedIn = false
		return fmt.Errorf("%w: credentials rejected", ErrFailed)
	}
	c.loggedIn = true
	c.log.Info(ctx, "logged in", "user", username)
	return nil
}

// LoginByCookie attaches a previously obtained cookie set ("k=v; k2=v2")
// and verifies it by fetching an authenticated page and checking that the
// "please log in" marker is absent.
func (c *Client) LoginByCookie(ctx context.Context, cookie string) error {
	u, err := url.Parse(c.base)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailed, err)
	}
	c.session.SetCookieString(u, cookie)

	page, err := c.session.Get(ctx, c.diskURL(), nil)
	if err != nil {
		return err
	}
	if strings.Contains(string(page), loginRequiredMarker) {
		c.loggedIn = false
		return fmt.Errorf("%w: cookie rejected", ErrFailed)
	}
	c.loggedIn = true
	c.log.Info(ctx, "logged in via cookie")
	return nil
}

// CookieString exports the current session cookies for the service origin,
// suitable for a later LoginByCookie.
func (c *Client) CookieString() string {
	u, err := url.Parse(c.base)
	if err != nil {
		return ""
	}
	return c.session.CookieString(u)
}

// Logout clears the session state. All cookies are dropped.
func (c *Client) Logout(ctx context.Context) error {
	if !c.loggedIn {
		return nil
	}
	_, err := c.session.Get(ctx, c.loginURL(), map[string]string{"action": "logout"})
	c.session.Reset()
	c.loggedIn = false
	if err != nil {
		return err
	}
	c.log.Info(ctx, "logged out")
	return nil
}
