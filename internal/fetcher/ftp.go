package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	anonymousUser = "anonymous"
	anonymousPass = "anonymous@"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher retrieves parcel layers from FTP servers, where many municipal
// cadastre portals still publish them.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher returns an FTPFetcher; a zero Timeout becomes 30s.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// ftpLocation is a parsed ftp:// source.
type ftpLocation struct {
	addr string // host:port
	file string
	user string
	pass string
}

// locateFTP parses an ftp:// URL. The port defaults to 21 and the login is
// anonymous unless the URL carries userinfo.
func locateFTP(rawURL string) (ftpLocation, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpLocation{}, eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return ftpLocation{}, eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpLocation{}, eris.Errorf("ftp: no file in %s", u.Redacted())
	}

	loc := ftpLocation{addr: u.Host, file: u.Path, user: anonymousUser, pass: anonymousPass}
	if u.Port() == "" {
		loc.addr = net.JoinHostPort(u.Hostname(), "21")
	}
	if name := u.User.Username(); name != "" {
		loc.user = name
		loc.pass, _ = u.User.Password()
	}
	return loc, nil
}

// ftpStream is a retrieval in progress. Closing it ends the transfer and the
// control connection.
type ftpStream struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (s *ftpStream) Close() error {
	if err := s.Response.Close(); err != nil {
		_ = s.conn.Quit()
		return eris.Wrap(err, "ftp: close transfer")
	}
	return eris.Wrap(s.conn.Quit(), "ftp: quit")
}

// Download logs in and starts retrieving the file named by rawURL. The caller
// must close the returned stream.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	loc, err := locateFTP(rawURL)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("addr", loc.addr), zap.String("file", loc.file))

	conn, err := ftp.Dial(loc.addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: dial %s", loc.addr)
	}
	if err := conn.Login(loc.user, loc.pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp: login as %s", loc.user)
	}

	if size, err := conn.FileSize(loc.file); err == nil {
		log.Debug("ftp: retrieving", zap.Int64("bytes", size))
	}

	resp, err := conn.Retr(loc.file)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp: retrieve %s", loc.file)
	}
	return &ftpStream{Response: resp, conn: conn}, nil
}
