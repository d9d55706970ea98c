package strand_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/strand"
	"github.com/aretw0/strand/pkg/adapters/memory"
	"github.com/aretw0/strand/pkg/coro"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/loader"
	"github.com/aretw0/strand/pkg/runner"
)

// ExampleNew_memory runs a YAML unit held in memory.
func ExampleNew_memory() {
	src := memory.NewSource(map[string]string{
		"hello": `
channels: [greeting]
fibers:
  main:
    - spawn: listener
    - write: {chan: greeting, value: world}
    - print: "main done"
  listener:
    - read: {chan: greeting, into: who}
    - print: "hello ${who}"
`,
	})

	engine, err := strand.New("",
		strand.WithSource(src),
		strand.WithRunnerOptions(runner.WithOutput(os.Stdout)),
	)
	if err != nil {
		log.Fatal(err)
	}

	if _, err := engine.RunUnit(context.Background(), "hello"); err != nil {
		log.Fatal(err)
	}

	// Output:
	// hello world
	// main done
}

// ExampleWithStatic runs a unit written in Go.
func ExampleWithStatic() {
	nums := domain.NewChannel("nums")

	img := loader.Static("sum",
		func(context.Context) (any, error) { return nil, nil },
		nil,
		func(any) *domain.Fiber {
			return coro.New("main", func(c *coro.Context) {
				c.Spawn("producer", func(c *coro.Context) {
					for i := 1; i <= 3; i++ {
						c.Write(nums, i)
					}
				})
				total := 0
				for range 3 {
					n, _ := coro.ReadAs[int](c, nums)
					total += n
				}
				fmt.Println("total:", total)
			})
		},
	)

	engine, err := strand.New("", strand.WithStatic(img))
	if err != nil {
		log.Fatal(err)
	}

	report, err := engine.RunUnit(context.Background(), "sum")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("rendezvous:", report.Stats.Rendezvous)

	// Output:
	// total: 6
	// rendezvous: 3
}
