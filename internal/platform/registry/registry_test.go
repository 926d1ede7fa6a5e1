package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiml/duende/internal/platform"
)

func TestSelect_PepitaRequiresImages(t *testing.T) {
	_, err := Select(platform.DetectedPepita, Options{})
	assert.Error(t, err)
}

func TestSelect_PepitaSucceedsWithImages(t *testing.T) {
	a, err := Select(platform.DetectedPepita, Options{
		PepitaKernelPath:     "/boot/vmlinux",
		PepitaRootfsPath:     "/boot/rootfs.img",
		PepitaLauncherBinary: "pepita",
	})
	require.NoError(t, err)
	assert.Equal(t, "pepita", a.Name())
}

func TestSelect_WOS(t *testing.T) {
	a, err := Select(platform.DetectedWOS, Options{WOSBasePID: 2})
	require.NoError(t, err)
	assert.Equal(t, "wos", a.Name())
}

func TestSelect_UnknownPlatform(t *testing.T) {
	_, err := Select(platform.Platform(99), Options{})
	assert.Error(t, err)
}
