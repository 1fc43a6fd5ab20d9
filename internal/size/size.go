/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package size parses the byte-count arguments the config grammar accepts
// (client_max_body_size and friends) into a typed Size instead of a bare int.
package size

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is a byte count.
type Size uint64

const (
	SizeUnit Size = 1
	SizeKilo Size = SizeUnit << 10
	SizeMega Size = SizeKilo << 10
	SizeGiga Size = SizeMega << 10
	SizeTera Size = SizeGiga << 10
	SizePeta Size = SizeTera << 10
)

var suffixes = []struct {
	suffix string
	unit   Size
}{
	{"PB", SizePeta}, {"P", SizePeta},
	{"TB", SizeTera}, {"T", SizeTera},
	{"GB", SizeGiga}, {"G", SizeGiga},
	{"MB", SizeMega}, {"M", SizeMega},
	{"KB", SizeKilo}, {"K", SizeKilo},
	{"B", SizeUnit},
}

// Parse accepts a plain integer ("1024") or an integer followed by a
// B/K/M/G/T/P suffix ("10M", "1GB"). A bare integer is bytes.
func Parse(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("size: empty value")
	}

	upper := strings.ToUpper(s)
	for _, sfx := range suffixes {
		if strings.HasSuffix(upper, sfx.suffix) {
			numPart := strings.TrimSpace(s[:len(s)-len(sfx.suffix)])
			if numPart == "" {
				return 0, fmt.Errorf("size: missing numeric part in %q", s)
			}
			f, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("size: invalid number in %q: %w", s, err)
			}
			if f < 0 {
				return 0, fmt.Errorf("size: negative value %q", s)
			}
			return Size(f * float64(sfx.unit)), nil
		}
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("size: invalid value %q", s)
	}
	return Size(n), nil
}

func (s Size) String() string {
	switch {
	case s >= SizeTera:
		return fmt.Sprintf("%.2fTB", float64(s)/float64(SizeTera))
	case s >= SizeGiga:
		return fmt.Sprintf("%.2fGB", float64(s)/float64(SizeGiga))
	case s >= SizeMega:
		return fmt.Sprintf("%.2fMB", float64(s)/float64(SizeMega))
	case s >= SizeKilo:
		return fmt.Sprintf("%.2fKB", float64(s)/float64(SizeKilo))
	default:
		return fmt.Sprintf("%dB", uint64(s))
	}
}

// Int64 returns the size as an int64, for call sites (Content-Length,
// io.CopyN limits) that need a signed count.
func (s Size) Int64() int64 {
	return int64(s)
}
