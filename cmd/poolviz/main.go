// Command poolviz animates the block pools of a scenecore World in the
// terminal while a random allocate/free workload runs against them.
//
// Keys: q or Esc quits, space pauses, + and - change the workload rate.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/hupe1980/scenecore"
)

var (
	seed     = flag.Uint64("seed", 1, "Workload seed")
	rate     = flag.Int("rate", 8, "Operations per frame")
	fps      = flag.Int("fps", 30, "Frames per second")
	maxSize  = flag.Int("max-size", 12<<10, "Largest allocation size in bytes")
	smallCnt = flag.Int("small", 256, "Small pool block count")
	medCnt   = flag.Int("medium", 64, "Medium pool block count")
)

func main() {
	flag.Parse()

	w, err := scenecore.New(
		scenecore.WithTieredConfig(scenecore.TieredConfig{
			SmallBlockCount:  *smallCnt,
			MediumBlockCount: *medCnt,
			LargeCapacity:    1 << 20,
		}),
		scenecore.WithCapacity(1),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer w.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatal(err)
	}
	if err := screen.Init(); err != nil {
		log.Fatal(err)
	}

	app := newApp(screen, newWorkload(w, *seed, *maxSize), *rate)
	runErr := app.run(time.Second / time.Duration(max(*fps, 1)))
	screen.Fini()

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}
