package domain_test

import (
	"testing"

	"github.com/aretw0/strand/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func names(q *domain.Queue) []string {
	var out []string
	q.Each(func(f *domain.Fiber) { out = append(out, f.Name) })
	return out
}

func TestQueue_Order(t *testing.T) {
	var q domain.Queue
	a := domain.NewFiber("a", nil)
	b := domain.NewFiber("b", nil)
	c := domain.NewFiber("c", nil)

	q.PushBack(a)
	q.PushBack(b)
	q.PushFront(c)

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []string{"c", "a", "b"}, names(&q))

	assert.Same(t, c, q.PopFront())
	assert.Same(t, a, q.PopFront())
	assert.Same(t, b, q.PopFront())
	assert.Nil(t, q.PopFront())
	assert.Equal(t, 0, q.Len())
}

func TestChannel_WaitQueuesAreFIFO(t *testing.T) {
	ch := domain.NewChannel("c")
	r1 := domain.NewFiber("r1", nil)
	r2 := domain.NewFiber("r2", nil)
	w1 := domain.NewFiber("w1", nil)

	ch.PushReader(r1)
	ch.PushReader(r2)
	ch.PushWriter(w1)

	assert.Equal(t, 2, ch.Readers())
	assert.Equal(t, 1, ch.Writers())
	assert.Same(t, r1, ch.PopReader())
	assert.Same(t, r2, ch.PopReader())
	assert.Nil(t, ch.PopReader())
	assert.Same(t, w1, ch.PopWriter())
	assert.Nil(t, ch.PopWriter())
}

func TestTransfer_CopiesValue(t *testing.T) {
	src := &domain.Slot{Value: "payload"}
	dst := &domain.Slot{}
	domain.Transfer(dst, src)

	v, err := dst.Get()
	assert.NoError(t, err)
	assert.Equal(t, "payload", v)
	assert.Equal(t, "payload", src.Value)
}
