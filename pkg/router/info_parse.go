package router

import (
	"strconv"
	"strings"
)

// gdbus prints its reply as a tuple literal like "(uint32 4,)" or
// "('Aurora OS 4.0.2',)". These helpers pull the first scalar out of that
// shape, defaulting to the zero value on anything unexpected rather than
// failing the whole Info call over one field.

func firstLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

func trimTuple(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "(),")
	return strings.TrimSpace(s)
}

func extractString(lines []string) string {
	s := trimTuple(firstLine(lines))
	s = strings.Trim(s, "'")
	return s
}

func extractStringOr(lines []string, fallback string) string {
	s := extractString(lines)
	if s == "" {
		return fallback
	}
	return s
}

func extractUint32(lines []string) uint32 {
	s := trimTuple(firstLine(lines))
	s = strings.TrimPrefix(s, "uint32 ")
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

func extractUint64(lines []string) uint64 {
	s := trimTuple(firstLine(lines))
	s = strings.TrimPrefix(s, "uint64 ")
	s = strings.TrimPrefix(s, "uint32 ")
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func extractFloat64(lines []string) float64 {
	s := trimTuple(firstLine(lines))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func extractBool(lines []string) bool {
	return strings.Contains(strings.ToLower(firstLine(lines)), "true")
}

// parseScreenDimensions parses gdbus's getScreenResolution reply, which
// looks like "('1080x2160',)", falling back to a plausible default when the
// device doesn't answer in the expected shape.
func parseScreenDimensions(lines []string) (width, height int) {
	const defaultW, defaultH = 720, 1440
	s := extractString(lines)
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return defaultW, defaultH
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return defaultW, defaultH
	}
	return w, h
}

// parseMemInfoLine parses the four whitespace-separated KB fields produced
// by memInfoCommand, converting each to MB.
func parseMemInfoLine(lines []string) (availableMB, freeMB, buffersMB, cachedMB uint64) {
	fields := strings.Fields(firstLine(lines))
	vals := make([]uint64, 4)
	for i := 0; i < 4 && i < len(fields); i++ {
		v, err := strconv.ParseUint(fields[i], 10, 64)
		if err == nil {
			vals[i] = v / 1024
		}
	}
	return vals[0], vals[1], vals[2], vals[3]
}

// parseHomeStorage parses homeStorageCommand's "total_blocks free_blocks
// block_size" reply into MB totals, defaulting block size to 4096 bytes
// when the device's stat doesn't report one.
func parseHomeStorage(lines []string) (totalMB, freeMB uint64) {
	fields := strings.Fields(firstLine(lines))
	if len(fields) < 2 {
		return 0, 0
	}
	totalBlocks, _ := strconv.ParseUint(fields[0], 10, 64)
	freeBlocks, _ := strconv.ParseUint(fields[1], 10, 64)
	blockSize := uint64(4096)
	if len(fields) >= 3 {
		if v, err := strconv.ParseUint(fields[2], 10, 64); err == nil && v > 0 {
			blockSize = v
		}
	}
	const mb = 1024 * 1024
	return totalBlocks * blockSize / mb, freeBlocks * blockSize / mb
}

// extractPackageIDs pulls every `'general.id': '<id>'` occurrence out of a
// GetPackageList reply line, the shape the package manager's D-Bus service
// emits for each installed package's metadata map.
func extractPackageIDs(lines []string) []string {
	const marker = `'general.id': '`
	var ids []string
	for _, line := range lines {
		rest := line
		for {
			idx := strings.Index(rest, marker)
			if idx == -1 {
				break
			}
			rest = rest[idx+len(marker):]
			end := strings.Index(rest, "'")
			if end == -1 {
				break
			}
			ids = append(ids, rest[:end])
			rest = rest[end+1:]
		}
	}
	return ids
}
