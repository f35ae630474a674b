package tcpsock

import "log/slog"

type Option func(*Config)

func Options(opts ...Option) *Config {
	var cfg = &Config{
		Backlog: 1024,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

type Config struct {
	Reuseaddr  bool
	Reuseport  bool // declared in reuseport_unix.go, never settable on windows
	SendBuffer int
	RecvBuffer int
	Nodelay    bool
	Backlog    int
	Logger     *slog.Logger
}

// Reuseaddr set SO_REUSEADDR before bind, default false
func Reuseaddr(v bool) Option {
	return func(c *Config) {
		c.Reuseaddr = v
	}
}

// SendBuffer set SO_SNDBUF hint in bytes, 0 keeps the system default
func SendBuffer(bytes int) Option {
	return func(c *Config) {
		if bytes > 0 {
			c.SendBuffer = bytes
		}
	}
}

// RecvBuffer set SO_RCVBUF hint in bytes, 0 keeps the system default
func RecvBuffer(bytes int) Option {
	return func(c *Config) {
		if bytes > 0 {
			c.RecvBuffer = bytes
		}
	}
}

// Nodelay set TCP_NODELAY, default false
func Nodelay(v bool) Option {
	return func(c *Config) {
		c.Nodelay = v
	}
}

// Backlog set the listen(2) backlog used by ListenAddr, default 1024
func Backlog(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Backlog = n
		}
	}
}

// Logger set the logger used for close failures, default slog.Default
func Logger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
