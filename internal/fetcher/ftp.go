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

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads files over FTP, anonymously unless the URL carries
// credentials.
type FTPFetcher struct {
	timeout time.Duration
}

// NewFTPFetcher creates an FTPFetcher. Zero timeout means two minutes.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &FTPFetcher{timeout: timeout}
}

type ftpTarget struct {
	addr string
	user string
	pass string
	path string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, eris.Errorf("ftp: no file path in %s", rawURL)
	}

	t := ftpTarget{addr: u.Host, user: "anonymous", pass: "anonymous@", path: u.Path}
	if u.Port() == "" {
		t.addr = net.JoinHostPort(u.Hostname(), "21")
	}
	if u.User != nil {
		t.user = u.User.Username()
		t.pass, _ = u.User.Password()
	}
	return t, nil
}

// ftpBody streams a RETR response and logs out when closed.
type ftpBody struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Close() error {
	err := b.Response.Close()
	if qerr := b.conn.Quit(); err == nil && qerr != nil {
		err = eris.Wrap(qerr, "ftp: quit")
	}
	return err
}

func (f *FTPFetcher) connect(ctx context.Context, t ftpTarget) (*ftp.ServerConn, error) {
	zap.L().Debug("fetcher: ftp connect", zap.String("addr", t.addr), zap.String("path", t.path))

	conn, err := ftp.Dial(t.addr, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: dial %s", t.addr)
	}
	if err := conn.Login(t.user, t.pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp: login to %s as %s", t.addr, t.user)
	}
	return conn, nil
}

// Download opens the remote file for reading. Closing the reader ends the
// FTP session.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	t, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}
	conn, err := f.connect(ctx, t)
	if err != nil {
		return nil, err
	}
	resp, err := conn.Retr(t.path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp: retrieve %s", t.path)
	}
	return &ftpBody{Response: resp, conn: conn}, nil
}

// DownloadToFile copies the remote file to path and returns the bytes
// written. When the server reports a size, a short transfer is an error.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL string, path string) (int64, error) {
	t, err := parseFTPURL(ftpURL)
	if err != nil {
		return 0, err
	}
	conn, err := f.connect(ctx, t)
	if err != nil {
		return 0, err
	}
	defer conn.Quit() //nolint:errcheck

	want, sizeErr := conn.FileSize(t.path)
	resp, err := conn.Retr(t.path)
	if err != nil {
		return 0, eris.Wrapf(err, "ftp: retrieve %s", t.path)
	}
	n, err := copyToFile(resp, path)
	if cerr := resp.Close(); err == nil && cerr != nil {
		err = eris.Wrap(cerr, "ftp: finish transfer")
	}
	if err != nil {
		return n, err
	}
	if sizeErr == nil && want > 0 && n != want {
		return n, eris.Errorf("ftp: %s: got %d bytes, server reported %d", t.path, n, want)
	}
	return n, nil
}
