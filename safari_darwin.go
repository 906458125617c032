//go:build darwin && !ios

package snoosession

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// readSafariCookie scans Safari's Cookies.binarycookies store for the session
// cookie. The store is unencrypted but uses Apple's binary page format.
func readSafariCookie(ctx context.Context) ([]cookieCandidate, []string, error) {
	var warnings []string
	var out []cookieCandidate

	for _, p := range safariCookieFiles() {
		candidates, err := safariScanFile(ctx, p)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("snoosession: Safari read failed: %v", err))
			continue
		}
		out = append(out, candidates...)
	}
	return out, warnings, nil
}

func safariCookieFiles() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	var out []string
	for _, p := range []string{
		filepath.Join(home, "Library", "Containers", "com.apple.Safari", "Data", "Library", "Cookies", "Cookies.binarycookies"),
		filepath.Join(home, "Library", "Cookies", "Cookies.binarycookies"),
	} {
		if fileExists(p) {
			out = append(out, p)
		}
	}
	return out
}

// Binary layout: big-endian "cook" file header and page sizes, then
// little-endian pages, each holding cookie records addressed by offset.
type safariCookieRecord struct {
	Size           int32
	Unknown1       int32
	Flags          int32
	Unknown2       int32
	DomainOffset   int32
	NameOffset     int32
	PathOffset     int32
	ValueOffset    int32
	End            [8]byte
	ExpirationDate float64
	CreationDate   float64
}

func safariScanFile(ctx context.Context, filename string) ([]cookieCandidate, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var header struct {
		Magic    [4]byte
		NumPages int32
	}
	if err := binary.Read(f, binary.BigEndian, &header); err != nil {
		return nil, err
	}
	if string(header.Magic[:]) != "cook" {
		return nil, fmt.Errorf("unexpected magic %q", string(header.Magic[:]))
	}

	pageSizes := make([]int32, header.NumPages)
	if err := binary.Read(f, binary.BigEndian, &pageSizes); err != nil {
		return nil, err
	}

	var out []cookieCandidate
	for i, size := range pageSizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates, err := safariScanPage(f, i, size)
		if err != nil {
			return nil, err
		}
		out = append(out, candidates...)
	}
	return out, nil
}

func safariScanPage(r io.Reader, page int, pageSize int32) ([]cookieCandidate, error) {
	b := make([]byte, pageSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	br := bytes.NewReader(b)

	var header struct {
		Header     [4]byte
		NumCookies int32
	}
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	if header.Header != [4]byte{0x00, 0x00, 0x01, 0x00} {
		return nil, fmt.Errorf("page %d: unexpected header %v", page, header.Header)
	}

	offsets := make([]int32, header.NumCookies)
	if err := binary.Read(br, binary.LittleEndian, &offsets); err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	var out []cookieCandidate
	for i, off := range offsets {
		if _, err := br.Seek(int64(off), io.SeekStart); err != nil {
			return nil, fmt.Errorf("page %d cookie %d: %w", page, i, err)
		}
		c, ok, err := safariMatchCookie(br)
		if err != nil {
			return nil, fmt.Errorf("page %d cookie %d: %w", page, i, err)
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func safariMatchCookie(r io.ReadSeeker) (cookieCandidate, bool, error) {
	start, _ := r.Seek(0, io.SeekCurrent)

	var rec safariCookieRecord
	if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
		return cookieCandidate{}, false, err
	}

	name, err := safariReadString(r, start, rec.NameOffset)
	if err != nil {
		return cookieCandidate{}, false, err
	}
	if name != SessionCookieName {
		return cookieCandidate{}, false, nil
	}
	domain, err := safariReadString(r, start, rec.DomainOffset)
	if err != nil {
		return cookieCandidate{}, false, err
	}
	host := strings.TrimPrefix(strings.ToLower(domain), ".")
	if host != cookieHost && !strings.HasSuffix(host, "."+cookieHost) {
		return cookieCandidate{}, false, nil
	}
	value, err := safariReadString(r, start, rec.ValueOffset)
	if err != nil {
		return cookieCandidate{}, false, err
	}

	c := cookieCandidate{value: value, profile: "Default"}
	if rec.ExpirationDate != 0 {
		t := safariTime(rec.ExpirationDate)
		c.expires = &t
	}
	return c, true, nil
}

func safariReadString(r io.ReadSeeker, start int64, offset int32) (string, error) {
	if offset <= 0 {
		return "", errors.New("invalid offset")
	}
	if _, err := r.Seek(start+int64(offset), io.SeekStart); err != nil {
		return "", err
	}
	br := bufio.NewReader(r)
	s, err := br.ReadString(0)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(s, "\x00"), nil
}

func safariTime(secsSince2001 float64) time.Time {
	// Safari stores seconds since 2001-01-01 00:00:00 UTC.
	const macEpoch = int64(978307200)
	sec := int64(secsSince2001)
	nsec := int64((secsSince2001 - float64(sec)) * 1e9)
	return time.Unix(macEpoch+sec, nsec).UTC()
}
