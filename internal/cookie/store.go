package cookie

import (
	"maps"
	"net/http"
	"time"
)

type Options struct {
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// Session is the decoded content of one cookie.
type Session struct {
	values map[string]string
}

func NewSession() *Session {
	return &Session{values: map[string]string{}}
}

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *Session) Set(key, value string) {
	s.values[key] = value
}

func (s *Session) Unset(key string) {
	delete(s.values, key)
}

type Store struct {
	name  string
	codec *Codec
	opts  Options
	now   func() time.Time
}

func NewStore(name string, codec *Codec, opts Options) *Store {
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}
	return &Store{name: name, codec: codec, opts: opts, now: time.Now}
}

func (s *Store) Name() string { return s.name }

// Get never fails: a missing, tampered or expired cookie reads as empty.
func (s *Store) Get(r *http.Request) *Session {
	c, err := r.Cookie(s.name)
	if err != nil || c.Value == "" {
		return NewSession()
	}
	values, err := s.codec.Decode(c.Value)
	if err != nil {
		return NewSession()
	}
	return &Session{values: maps.Clone(values)}
}

type commitConfig struct {
	expires time.Time
}

type CommitOption func(*commitConfig)

// WithExpires overrides the store's MaxAge for this cookie.
func WithExpires(t time.Time) CommitOption {
	return func(c *commitConfig) { c.expires = t }
}

// Commit encodes sess into a cookie ready for http.SetCookie. Without
// MaxAge or WithExpires the result is a browser-session cookie.
func (s *Store) Commit(sess *Session, opts ...CommitOption) (*http.Cookie, error) {
	var cfg commitConfig
	for _, o := range opts {
		o(&cfg)
	}
	now := s.now()
	if cfg.expires.IsZero() && s.opts.MaxAge > 0 {
		cfg.expires = now.Add(s.opts.MaxAge)
	}

	value, err := s.codec.Encode(sess.values, cfg.expires)
	if err != nil {
		return nil, err
	}

	c := s.base(value)
	if !cfg.expires.IsZero() {
		c.Expires = cfg.expires.UTC()
		c.MaxAge = int(cfg.expires.Sub(now) / time.Second)
		if c.MaxAge <= 0 {
			c.MaxAge = -1
		}
	}
	return c, nil
}

// Destroy returns a cookie that makes the browser drop the session.
func (s *Store) Destroy(_ *Session) *http.Cookie {
	c := s.base("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0).UTC()
	return c
}

func (s *Store) base(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     s.opts.Path,
		Domain:   s.opts.Domain,
		Secure:   s.opts.Secure,
		HttpOnly: s.opts.HTTPOnly,
		SameSite: s.opts.SameSite,
	}
}
