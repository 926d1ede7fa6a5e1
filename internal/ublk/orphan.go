package ublk

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// orphanScanRange bounds cleanupDeviceRange's fallback sweep when /dev
// scanning finds no character-device orphans but the control device may
// still carry stale kernel-only state from a previous crash.
const orphanScanRange = 8

// DetectOrphanedDevices scans /dev for ublk character devices
// (/dev/ublkcN) with no corresponding block device (/dev/ublkbN): a
// daemon that held N crashed after attaching but before the kernel tore
// the device down.
func DetectOrphanedDevices() ([]uint32, error) {
	var orphans []uint32

	entries, err := os.ReadDir("/dev")
	if err != nil {
		if os.IsNotExist(err) {
			return orphans, nil
		}
		return nil, &Error{Kind: KindScanDevDir, Err: err}
	}

	for _, entry := range entries {
		idStr, ok := strings.CutPrefix(entry.Name(), "ublkc")
		if !ok {
			continue
		}
		devID, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			continue
		}
		if _, err := os.Stat(BlockDevPrefix + idStr); err != nil {
			orphans = append(orphans, uint32(devID))
		}
	}

	return orphans, nil
}

// CleanupOrphanedDevices detects orphaned devices and force-deletes each
// one. If /dev scanning finds nothing, it falls back to sweeping a fixed
// low device-id range, since the kernel can retain device state with no
// character device present at all. Individual device failures are not
// fatal; the sweep continues.
func CleanupOrphanedDevices() (int, error) {
	orphans, _ := DetectOrphanedDevices()

	if len(orphans) == 0 {
		return cleanupDeviceRange(0, orphanScanRange)
	}

	ctrl, err := Open()
	if err != nil {
		if isControlDeviceNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	defer ctrl.Close()

	cleaned := 0
	for _, devID := range orphans {
		if ok, _ := ctrl.ForceDelete(devID); ok {
			cleaned++
		}
	}
	return cleaned, nil
}

func cleanupDeviceRange(start, end uint32) (int, error) {
	ctrl, err := Open()
	if err != nil {
		if isControlDeviceNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	defer ctrl.Close()

	cleaned := 0
	for devID := start; devID < end; devID++ {
		if _, err := os.Stat(BlockDevPrefix + strconv.FormatUint(uint64(devID), 10)); err == nil {
			continue
		}
		if ok, _ := ctrl.ForceDelete(devID); ok {
			cleaned++
		}
	}
	return cleaned, nil
}

func isControlDeviceNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindControlDeviceNotFound
	}
	return false
}
