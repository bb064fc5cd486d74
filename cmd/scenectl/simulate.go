package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/hupe1980/scenecore"
)

var (
	simScene      string
	simEntities   int
	simFrames     int
	simAnimate    bool
	simProfile    string
	simProfileDir string
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().StringVar(&simScene, "scene", "", "Scene JSON file (default: built-in arm)")
	cmd.Flags().IntVarP(&simEntities, "entities", "n", 16, "Number of entities to spawn")
	cmd.Flags().IntVarP(&simFrames, "frames", "f", 100, "Number of frames to run")
	cmd.Flags().BoolVar(&simAnimate, "animate", true, "Drive a rotation sample on every entity")
	cmd.Flags().StringVar(&simProfile, "profile", "", "Profile the run (cpu, mem, allocs, block, mutex)")
	cmd.Flags().StringVar(&simProfileDir, "profile-dir", ".", "Directory for profile output")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Spawn entities and run the transform pass",
		Long: `The simulate command spawns a scene into a World, optionally animates
every entity and runs Update for a number of frames.

Example:
  scenectl simulate -n 64 -f 1000
  scenectl simulate --scene character.json --profile cpu`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd)
		},
	}
}

func profileMode(name string) (func(*profile.Profile), error) {
	switch name {
	case "cpu":
		return profile.CPUProfile, nil
	case "mem":
		return profile.MemProfile, nil
	case "allocs":
		return profile.MemProfileAllocs, nil
	case "block":
		return profile.BlockProfile, nil
	case "mutex":
		return profile.MutexProfile, nil
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
}

func runSimulate(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if simProfile != "" {
		mode, err := profileMode(simProfile)
		if err != nil {
			return err
		}
		defer profile.Start(mode, profile.ProfilePath(simProfileDir), profile.NoShutdownHook, profile.Quiet).Stop()
	}

	sc, err := loadScene(simScene)
	if err != nil {
		return err
	}

	w, _, err := newWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	entities := make([]scenecore.Entity, 0, simEntities)
	for i := 0; i < simEntities; i++ {
		e, err := w.Spawn(ctx, sc, scenecore.SpawnOptions{Animated: simAnimate})
		if err != nil {
			return fmt.Errorf("spawn %d: %w", i, err)
		}
		if err := w.SetTransform(e, mgl32.Translate3D(float32(i)*2, 0, 0)); err != nil {
			return err
		}
		entities = append(entities, e)
	}

	// The first child of the first root swings; every entity is phase shifted.
	swing := -1
	if r := sc.Roots[0]; len(sc.Nodes[r].Children) > 0 {
		swing = sc.Nodes[r].Children[0]
	}

	start := time.Now()
	var slowest time.Duration
	for frame := 0; frame < simFrames; frame++ {
		if simAnimate && swing >= 0 {
			for i, e := range entities {
				sample, err := w.Sample(e)
				if err != nil {
					return err
				}
				angle := float32(frame)*0.05 + float32(i)*0.1
				sample.SetRotation(swing, mgl32.QuatRotate(angle, mgl32.Vec3{0, 0, 1}))
			}
		}

		t := time.Now()
		if err := w.Update(ctx); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		slowest = max(slowest, time.Since(t))
	}
	elapsed := time.Since(start)

	avg := time.Duration(0)
	if simFrames > 0 {
		avg = elapsed / time.Duration(simFrames)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, section("Simulation",
		field("Entities", len(entities)),
		field("Nodes/entity", len(sc.Nodes)),
		field("Frames", simFrames),
		field("Total", elapsed.Round(time.Microsecond)),
		field("Avg frame", avg.Round(time.Microsecond)),
		field("Slowest frame", slowest.Round(time.Microsecond)),
	))
	fmt.Fprintln(out, renderWorldStats(w.Stats()))
	return nil
}

func memory(st scenecore.Stats) string {
	if st.MemoryLimit <= 0 {
		return fmt.Sprintf("%d B", st.MemoryUsage)
	}
	return fmt.Sprintf("%d / %d B", st.MemoryUsage, st.MemoryLimit)
}

func renderWorldStats(st scenecore.Stats) string {
	pool := func(p scenecore.PoolStats) string {
		return fmt.Sprintf("%d / %d", p.Used, p.Capacity)
	}
	return section("World",
		field("Static", pool(st.Store.Static)),
		field("Nodes", pool(st.Store.Nodes)),
		field("Joints", pool(st.Store.Joints)),
		field("Animation", pool(st.Store.Animation)),
		field("Frame arena", fmt.Sprintf("%d B", st.FrameArena.Capacity)),
		field("Memory", memory(st)),
		field("Captures", st.Captures),
	)
}
