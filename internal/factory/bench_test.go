package factory_test

import (
	"math/rand/v2"
	"testing"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

const benchKeys = 1 << 16

func benchIDs() []uint32 {
	rng := rand.New(rand.NewPCG(7, 7))
	ids := make([]uint32, benchKeys)
	for i := range ids {
		ids[i] = rng.Uint32()
	}
	return ids
}

func BenchmarkInsert(b *testing.B) {
	ids := benchIDs()
	for _, tag := range model.AllTags() {
		b.Run(tag.String(), func(b *testing.B) {
			cfg := config.Default().Indexes
			for b.Loop() {
				idx, err := factory.NewIndex(tag.String(), cfg, nil)
				if err != nil {
					b.Fatal(err)
				}
				for i, id := range ids {
					idx.Insert(model.Ref{ID: id, Handle: model.Handle(i + 1)})
				}
			}
		})
	}
}

func BenchmarkFind(b *testing.B) {
	ids := benchIDs()
	for _, tag := range model.AllTags() {
		b.Run(tag.String(), func(b *testing.B) {
			idx, err := factory.NewIndex(tag.String(), config.Default().Indexes, nil)
			if err != nil {
				b.Fatal(err)
			}
			for i, id := range ids {
				idx.Insert(model.Ref{ID: id, Handle: model.Handle(i + 1)})
			}
			i := 0
			for b.Loop() {
				idx.Find(ids[i%benchKeys])
				i++
			}
		})
	}
}
