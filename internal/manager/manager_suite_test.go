package manager_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestManagerSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Manager Lifecycle Suite")
}
