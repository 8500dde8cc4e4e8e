// Package drive enumerates scannable storage volumes and their capacity.
package drive

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/harrison/drivescan/internal/logger"
	"github.com/harrison/drivescan/internal/models"
)

// mountsPath is the kernel's mount table.
const mountsPath = "/proc/mounts"

// virtualFilesystems are mount types that never hold user files worth scanning.
var virtualFilesystems = map[string]bool{
	"proc": true, "sysfs": true, "devtmpfs": true, "devpts": true,
	"tmpfs": true, "cgroup": true, "cgroup2": true, "securityfs": true,
	"debugfs": true, "tracefs": true, "pstore": true, "bpf": true,
	"overlay": true, "squashfs": true, "autofs": true, "mqueue": true,
	"hugetlbfs": true, "configfs": true, "fusectl": true, "ramfs": true,
	"binfmt_misc": true, "rpc_pipefs": true, "nsfs": true, "efivarfs": true,
}

// UsageFunc queries total and used bytes for a mount path. Injectable so
// tests can simulate unavailable volumes.
type UsageFunc func(path string) (total, used uint64, err error)

// Enumerator lists mounted volumes with their capacity and used space.
type Enumerator struct {
	mountsFile string
	usage      UsageFunc
	logger     logger.Logger
}

// NewEnumerator creates an enumerator reading the system mount table.
func NewEnumerator(log logger.Logger) *Enumerator {
	return &Enumerator{
		mountsFile: mountsPath,
		usage:      statfsUsage,
		logger:     log,
	}
}

// NewEnumeratorWithSource creates an enumerator with an alternate mount
// table and usage query, for tests.
func NewEnumeratorWithSource(mountsFile string, usage UsageFunc, log logger.Logger) *Enumerator {
	return &Enumerator{
		mountsFile: mountsFile,
		usage:      usage,
		logger:     log,
	}
}

// Enumerate returns every real-filesystem mount as a Drive. Volumes whose
// capacity query fails are returned with status error so callers can report
// them, but they never abort enumeration of the remaining volumes.
// Returns an error only when no mount table can be read at all.
func (e *Enumerator) Enumerate() ([]models.Drive, error) {
	data, err := os.ReadFile(e.mountsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read mount table %s: %w", e.mountsFile, err)
	}

	seen := make(map[string]bool)
	var drives []models.Drive

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		device, mountPoint, fsType := fields[0], fields[1], fields[2]

		if virtualFilesystems[fsType] {
			continue
		}
		// Real block devices and network mounts only.
		if !strings.HasPrefix(device, "/") && !strings.Contains(device, ":") {
			continue
		}
		// Octal escapes in /proc/mounts ("\040" for space).
		mountPoint = unescapeMountPath(mountPoint)
		if seen[mountPoint] {
			continue
		}
		seen[mountPoint] = true

		d := models.Drive{ID: mountPoint, Status: models.DrivePending}
		total, used, err := e.usage(mountPoint)
		if err != nil {
			e.logger.LogWarn(fmt.Sprintf("drive %s: capacity query failed, excluding: %v", mountPoint, err))
			d.Status = models.DriveError
		} else {
			d.TotalBytes = total
			d.UsedBytes = used
		}
		drives = append(drives, d)
	}

	sort.Slice(drives, func(i, j int) bool { return drives[i].ID < drives[j].ID })

	if len(drives) == 0 {
		return nil, fmt.Errorf("no mounted volumes found in %s", e.mountsFile)
	}
	return drives, nil
}

// ReferenceUsedBytes returns the used bytes of the reference (root) volume,
// the anchor for proportional estimates. Returns 0 when the root volume is
// missing or errored.
func ReferenceUsedBytes(drives []models.Drive) uint64 {
	for _, d := range drives {
		if d.ID == "/" && d.Status != models.DriveError {
			return d.UsedBytes
		}
	}
	return 0
}

// Active filters out drives that failed enumeration.
func Active(drives []models.Drive) []models.Drive {
	var out []models.Drive
	for _, d := range drives {
		if d.Status != models.DriveError {
			out = append(out, d)
		}
	}
	return out
}

// statfsUsage queries the filesystem at path via statfs(2).
func statfsUsage(path string) (total, used uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bsize := uint64(st.Bsize)
	total = st.Blocks * bsize
	free := st.Bavail * bsize
	if free > total {
		free = total
	}
	return total, total - free, nil
}

// unescapeMountPath decodes the octal escapes /proc/mounts uses for
// whitespace in mount paths.
func unescapeMountPath(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	replacer := strings.NewReplacer(
		`\040`, " ",
		`\011`, "\t",
		`\012`, "\n",
		`\134`, `\`,
	)
	return replacer.Replace(s)
}
