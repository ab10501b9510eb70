package utils

import (
	"errors"
	"fmt"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"
)

type FreeSpaceType int

const (
	AsPercent FreeSpaceType = iota
	AsBytes
)

// FreeSpace is a minimum-free-space threshold, expressed either as a
// percentage of the volume or as an absolute byte count.
type FreeSpace struct {
	Type    FreeSpaceType
	Bytes   uint64
	Percent float32
	Raw     string
}

func (s FreeSpace) IsLow(freeBytes uint64, freePercent float32) (bool, string) {
	switch s.Type {
	case AsPercent:
		return freePercent < s.Percent, fmt.Sprintf("disk free percent %.2f%%, threshold %.2f%%", freePercent, s.Percent)
	case AsBytes:
		return freeBytes < s.Bytes, fmt.Sprintf("disk free bytes %d, threshold %d", freeBytes, s.Bytes)
	}
	return false, ""
}

func (s FreeSpace) String() string {
	switch s.Type {
	case AsPercent:
		return fmt.Sprintf("%.2f%%", s.Percent)
	default:
		return s.Raw
	}
}

// Guard returns an error when the volume holding path is below the
// threshold. A nil receiver disables the check.
func (s *FreeSpace) Guard(path string) error {
	if s == nil {
		return nil
	}
	freeBytes, freePercent, err := DiskFree(path)
	if err != nil {
		// Unreadable volumes fail open; the write itself will surface the problem
		return nil
	}
	if low, reason := s.IsLow(freeBytes, freePercent); low {
		return errors.New(reason)
	}
	return nil
}

// DiskFree reports the free bytes and free percentage of the volume
// holding path.
func DiskFree(path string) (uint64, float32, error) {
	fs := syscall.Statfs_t{}
	if err := syscall.Statfs(path, &fs); err != nil {
		return 0, 0, err
	}
	total := fs.Blocks * uint64(fs.Bsize)
	free := uint64(fs.Bavail) * uint64(fs.Bsize)
	if total == 0 {
		return free, 0, nil
	}
	return free, float32(float64(free) / float64(total) * 100), nil
}

func ParseMinFreeSpace(s string) (*FreeSpace, error) {
	if percent, err := strconv.ParseFloat(s, 32); err == nil {
		if percent < 0 || percent > 100 {
			return nil, fmt.Errorf("invalid percent value: %s", s)
		}
		return &FreeSpace{
			Type:    AsPercent,
			Percent: float32(percent),
			Raw:     s,
		}, nil
	}

	if bytes, err := humanize.ParseBytes(s); err == nil {
		if bytes <= 100 {
			return nil, fmt.Errorf("invalid byte value: %s", s)
		}
		return &FreeSpace{
			Type:  AsBytes,
			Bytes: bytes,
			Raw:   s,
		}, nil
	}

	return nil, errors.New("invalid min free space format")
}
