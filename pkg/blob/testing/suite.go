package testing

import (
	"context"
	"testing"

	"github.com/drivevault/drivevault/pkg/blob"
)

// StoreTestSuite is a conformance test suite for blob store implementations.
// It tests the interface contract, not implementation details, making it
// reusable across backends (memory, filesystem, S3, etc.).
//
// Usage:
//
//	func TestMyBlobStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) blob.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh blob store for
	// each test. This ensures test isolation.
	NewStore func(t *testing.T) blob.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ReadOperations", suite.RunReadTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("SweepOperations", suite.RunSweepTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
