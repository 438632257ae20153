package memory_test

import (
	"testing"

	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/storage/memory"
	"github.com/bobmcallan/playground/internal/storage/storagetest"
)

func newStore(t *testing.T) interfaces.RecordStore {
	return memory.NewStore()
}

func TestMemoryRecordStore(t *testing.T) {
	storagetest.RunRecordStoreTests(t, newStore)
}

func TestMemoryPortfolioStore(t *testing.T) {
	storagetest.RunPortfolioStoreTests(t, newStore)
}
