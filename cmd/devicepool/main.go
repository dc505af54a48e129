// Command devicepool prints the device count a pool would drive.
// Device enumeration is the caller's concern; without -devices the CPU
// count stands in.
package main

import (
	"flag"
	"fmt"
	"runtime"
)

func main() {
	devices := flag.Int("devices", 0, "Number of devices (0 = NumCPU)")
	flag.Parse()

	n := *devices
	if n <= 0 {
		n = runtime.NumCPU()
	}
	fmt.Printf("devicepool: %d devices available\n", n)
}
