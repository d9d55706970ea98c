package domain

// Channel is an unbuffered rendezvous point between one reader and one writer.
// It never holds a value, only the fibers waiting on either side.
type Channel struct {
	Name string

	readers Queue
	writers Queue
}

// NewChannel creates an empty channel.
func NewChannel(name string) *Channel {
	return &Channel{Name: name}
}

// PushReader parks f on the reader side.
func (c *Channel) PushReader(f *Fiber) {
	c.readers.PushBack(f)
}

// PopReader removes the oldest waiting reader, or returns nil.
func (c *Channel) PopReader() *Fiber {
	return c.readers.PopFront()
}

// PushWriter parks f on the writer side.
func (c *Channel) PushWriter(f *Fiber) {
	c.writers.PushBack(f)
}

// PopWriter removes the oldest waiting writer, or returns nil.
func (c *Channel) PopWriter() *Fiber {
	return c.writers.PopFront()
}

// Readers reports how many readers are parked, dead ones included.
func (c *Channel) Readers() int {
	return c.readers.Len()
}

// Writers reports how many writers are parked, dead ones included.
func (c *Channel) Writers() int {
	return c.writers.Len()
}

func (c *Channel) String() string {
	if c == nil {
		return "<nil channel>"
	}
	return c.Name
}
