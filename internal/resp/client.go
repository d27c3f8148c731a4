// Package resp is a minimal client for the redis wire protocol, covering the
// handful of commands the benchmark needs. It deliberately avoids a full
// client library: the point of the benchmark is to measure raw round trips,
// not library overhead.
//
// Commands go out as single inline CRLF-terminated lines. Replies are framed
// properly through a buffered reader — status (+), error (-), integer (:) and
// bulk ($) replies are all reassembled even when they span multiple reads.
package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when the server answers with a null bulk
// reply ($-1). It is distinct from a present-but-empty value.
var ErrNotFound = errors.New("resp: key not found")

// ServerError is an error reply (-...) from the server. The connection stays
// usable; the command simply failed.
type ServerError string

func (e ServerError) Error() string { return "resp: server error: " + string(e) }

// ProtocolError is a reply the client could not parse. After one of these the
// framing state of the connection is unknown, so it is torn down and not
// reused.
type ProtocolError string

func (e ProtocolError) Error() string { return "resp: protocol error: " + string(e) }

// Config describes one connection target.
type Config struct {
	Addr           string        // host:port
	Password       string        // optional, sent via AUTH right after connect
	Timeout        time.Duration // per read/write deadline (default 10s)
	ConnectTimeout time.Duration // dial deadline (default 5s)
	MaxRetries     int           // reconnect-and-retry attempts after the first failure (default 2)
	RetryBackoff   time.Duration // pause before each retry (default 500ms)
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return c
}

// DefaultMaxRetries is applied when the caller leaves MaxRetries at zero and
// wants the stock behavior. Kept small: the benchmark should report failures,
// not mask them.
const DefaultMaxRetries = 2

// Client owns a single connection. It is not safe for concurrent use; direct
// mode hands each worker its own Client.
type Client struct {
	cfg  Config
	conn net.Conn
	br   *bufio.Reader
}

// New returns an unconnected client. The first command dials lazily, or call
// Connect up front to fail fast.
func New(cfg Config) *Client {
	return &Client{cfg: cfg.withDefaults()}
}

// Connect dials the server, replacing any existing connection. When a
// password is configured it authenticates and requires +OK before reporting
// success. Failure closes the socket and is recoverable: the caller may retry.
func (c *Client) Connect() error {
	c.Close()

	conn, err := net.DialTimeout("tcp", c.cfg.Addr, c.cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("resp: connect %s: %w", c.cfg.Addr, err)
	}
	c.conn = conn
	c.br = bufio.NewReader(conn)

	if c.cfg.Password != "" {
		r, err := c.roundTrip("AUTH " + c.cfg.Password + "\r\n")
		if err != nil {
			c.Close()
			return fmt.Errorf("resp: auth: %w", err)
		}
		if r.kind != replyStatus || r.str != "OK" {
			c.Close()
			return fmt.Errorf("resp: auth rejected: %q", r.str)
		}
	}
	return nil
}

// Close tears the connection down. Safe to call repeatedly.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.br = nil
	}
}

// Ping sends a liveness probe.
func (c *Client) Ping() error {
	r, err := c.do("PING")
	if err != nil {
		return err
	}
	if r.kind != replyStatus || !strings.HasPrefix(r.str, "PONG") {
		c.Close()
		return ProtocolError("unexpected PING reply " + r.describe())
	}
	return nil
}

// Get fetches the value of key. A null bulk reply maps to ErrNotFound, which
// callers must keep distinct from an empty string value.
func (c *Client) Get(key string) (string, error) {
	r, err := c.do("GET", key)
	if err != nil {
		return "", err
	}
	switch {
	case r.kind == replyBulk && r.null:
		return "", ErrNotFound
	case r.kind == replyBulk:
		return r.str, nil
	case r.kind == replyError:
		return "", ServerError(r.str)
	default:
		c.Close()
		return "", ProtocolError("unexpected GET reply " + r.describe())
	}
}

// Set stores value under key. Succeeds iff the server answers +OK.
func (c *Client) Set(key, value string) error {
	r, err := c.do("SET", key, value)
	if err != nil {
		return err
	}
	switch {
	case r.kind == replyStatus && r.str == "OK":
		return nil
	case r.kind == replyError:
		return ServerError(r.str)
	default:
		c.Close()
		return ProtocolError("unexpected SET reply " + r.describe())
	}
}

// Del removes key and returns the number of keys removed.
func (c *Client) Del(key string) (int64, error) {
	return c.intCommand("DEL", key)
}

// Exists reports whether key is present.
func (c *Client) Exists(key string) (bool, error) {
	n, err := c.intCommand("EXISTS", key)
	return n > 0, err
}

func (c *Client) intCommand(cmd, key string) (int64, error) {
	r, err := c.do(cmd, key)
	if err != nil {
		return 0, err
	}
	switch r.kind {
	case replyInteger:
		return r.n, nil
	case replyError:
		return 0, ServerError(r.str)
	default:
		c.Close()
		return 0, ProtocolError("unexpected " + cmd + " reply " + r.describe())
	}
}

// do runs one command through the retry loop. Only transport-level failures
// retry; each retry attempt starts from a fresh connection (stale sockets are
// never reused) after a short backoff. Server errors and malformed replies
// surface immediately.
func (c *Client) do(args ...string) (reply, error) {
	for _, a := range args {
		if strings.ContainsAny(a, " \r\n") {
			return reply{}, fmt.Errorf("resp: token %q contains protocol delimiters", a)
		}
	}
	line := strings.Join(args, " ") + "\r\n"

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(c.cfg.RetryBackoff)
		}
		if c.conn == nil {
			if err := c.Connect(); err != nil {
				lastErr = err
				continue
			}
		}

		r, err := c.roundTrip(line)
		if err == nil {
			return r, nil
		}
		c.Close()

		var perr ProtocolError
		if errors.As(err, &perr) {
			return reply{}, err
		}
		lastErr = err
	}
	return reply{}, fmt.Errorf("resp: %s failed after %d attempts: %w",
		args[0], c.cfg.MaxRetries+1, lastErr)
}

func (c *Client) roundTrip(line string) (reply, error) {
	deadline := time.Now().Add(c.cfg.Timeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return reply{}, err
	}
	if _, err := io.WriteString(c.conn, line); err != nil {
		return reply{}, err
	}
	return readReply(c.br)
}

type replyKind byte

const (
	replyStatus  replyKind = '+'
	replyError   replyKind = '-'
	replyInteger replyKind = ':'
	replyBulk    replyKind = '$'
)

type reply struct {
	kind replyKind
	str  string // status/error text or bulk payload
	n    int64  // integer replies
	null bool   // $-1
}

func (r reply) describe() string {
	if r.null {
		return "$-1"
	}
	return fmt.Sprintf("%c%q", r.kind, r.str)
}

// readReply consumes exactly one reply. Bulk payloads are read to their
// declared length regardless of how the bytes arrive off the wire.
func readReply(br *bufio.Reader) (reply, error) {
	line, err := readLine(br)
	if err != nil {
		return reply{}, err
	}
	if len(line) == 0 {
		return reply{}, ProtocolError("empty reply line")
	}

	body := line[1:]
	switch replyKind(line[0]) {
	case replyStatus:
		return reply{kind: replyStatus, str: body}, nil
	case replyError:
		return reply{kind: replyError, str: body}, nil
	case replyInteger:
		n, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return reply{}, ProtocolError("bad integer reply " + strconv.Quote(body))
		}
		return reply{kind: replyInteger, n: n}, nil
	case replyBulk:
		n, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return reply{}, ProtocolError("bad bulk length " + strconv.Quote(body))
		}
		if n < 0 {
			return reply{kind: replyBulk, null: true}, nil
		}
		payload := make([]byte, n+2) // payload + CRLF
		if _, err := io.ReadFull(br, payload); err != nil {
			return reply{}, err
		}
		if payload[n] != '\r' || payload[n+1] != '\n' {
			return reply{}, ProtocolError("bulk payload missing CRLF terminator")
		}
		return reply{kind: replyBulk, str: string(payload[:n])}, nil
	default:
		return reply{}, ProtocolError("unknown reply type " + strconv.Quote(line))
	}
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", ProtocolError("reply line not CRLF terminated")
	}
	return line[:len(line)-2], nil
}
