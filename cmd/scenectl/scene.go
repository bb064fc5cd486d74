package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/hupe1980/scenecore/scene"
)

// defaultScene is a three-bone arm used when --scene is not given.
//
//go:embed testdata/arm.json
var defaultScene []byte

func loadScene(path string) (*scene.Scene, error) {
	c, ok := scene.CodecByName(sceneFmt)
	if !ok {
		return nil, fmt.Errorf("unknown --scene-codec %q", sceneFmt)
	}
	if path == "" {
		return scene.UnmarshalWith(c, defaultScene)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene: %w", err)
	}
	defer f.Close()

	sc, err := scene.DecodeWith(c, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}
