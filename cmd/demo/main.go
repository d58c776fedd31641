package main

import (
	"fmt"

	"github.com/rustffi/ffitypes/fakealloc"
)

// This is just a demo walking a boxed string through the full ownership
// protocol against the in-process fake allocating side.
func main() {
	alloc := fakealloc.New()
	defer alloc.Install()()

	raw := alloc.MintString("hello")
	fmt.Println("minted raw boxed string on the allocating side")

	owned := raw.Owned()
	fmt.Printf("converted to owned: %q (len %d)\n", owned.String(), owned.Len())

	moved := owned.Take()
	fmt.Printf("moved; source empty: %v\n", owned.IsEmpty())

	cloned := moved.Clone()
	fmt.Printf("cloned: %q, live allocations: %d\n", cloned.String(), alloc.Live())

	moved.Drop()
	cloned.Drop()

	m := alloc.Metrics()
	fmt.Printf("drops: %d, clones: %d, live: %d\n", m.StringDrops, m.StringClones, alloc.Live())
	fmt.Println("finished")
}
