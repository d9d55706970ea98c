/*
Package dsl builds program units in Go instead of YAML.

The builder produces the same program.UnitSpec a YAML file decodes to, so a
unit built here compiles, validates and runs exactly like one loaded from
disk.

Example usage:

	b := dsl.New("pingpong")
	b.Channel("ball")

	b.Fiber("main").
		Spawn("pong").
		Repeat(3, func(s *dsl.Steps) {
			s.Write("ball", "ping").ReadInto("ball", "reply").Print("main got $reply")
		})

	b.Fiber("pong").
		Loop(func(s *dsl.Steps) {
			s.ReadInto("ball", "msg").Write("ball", "pong")
		})

	img, err := b.Image()
	if err != nil {
		log.Fatal(err)
	}
	engine, err := strand.New("", strand.WithStatic(img))
*/
package dsl
