package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopad-go/domain/frame"
	"autopad-go/domain/scene"
)

func TestWriteScenes(t *testing.T) {
	reg := scene.NewRegistry()
	pt := []scene.Point{{Y: 1, X: 1, Color: frame.RGB(0, 0, 0)}}
	reg.Register(&scene.Scene{Name: "game_start", Category: "console", Points: pt})
	reg.Register(&scene.Scene{Name: "crash", Category: "console", Points: append(pt, pt...)})
	reg.Register(&scene.Scene{Name: "title", Category: "game", Points: pt})

	var all bytes.Buffer
	require.NoError(t, writeScenes(&all, reg, ""))
	assert.Contains(t, all.String(), "title")
	assert.Contains(t, all.String(), "game_start")

	var console bytes.Buffer
	require.NoError(t, writeScenes(&console, reg, "console"))
	assert.Equal(t,
		"NAME        CATEGORY  POINTS\n"+
			"crash       console   2\n"+
			"game_start  console   1\n",
		console.String())

	var none bytes.Buffer
	require.NoError(t, writeScenes(&none, reg, "menu"))
	assert.Equal(t, "NAME  CATEGORY  POINTS\n", none.String())
}
