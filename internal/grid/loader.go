package grid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MapInfo holds metadata for a single map, loaded from map_list.yaml.
type MapInfo struct {
	Name     string `yaml:"name"`
	Width    int32  `yaml:"width"`
	Height   int32  `yaml:"height"`
	TileFile string `yaml:"tile_file"` // relative to the tile dir; empty = fully open
}

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// LoadMapList reads map metadata from YAML.
func LoadMapList(yamlPath string) ([]MapInfo, error) {
	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", yamlPath, err)
	}
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}
	return file.Maps, nil
}

// LoadMap loads the named map from a map list and its tile directory.
func LoadMap(yamlPath, tileDir, name string) (*Map, error) {
	infos, err := LoadMapList(yamlPath)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Name != name {
			continue
		}
		if info.TileFile == "" {
			m := NewOpenMap(info.Width, info.Height)
			m.name = info.Name
			return m, nil
		}
		f, err := os.Open(filepath.Join(tileDir, info.TileFile))
		if err != nil {
			return nil, fmt.Errorf("open tiles for %s: %w", name, err)
		}
		defer f.Close()
		passable, err := ParseTiles(f, info.Width, info.Height)
		if err != nil {
			return nil, fmt.Errorf("parse tiles for %s: %w", name, err)
		}
		return NewMap(info.Name, info.Width, info.Height, passable)
	}
	return nil, fmt.Errorf("map %q not found in %s", name, yamlPath)
}

// ParseTiles reads a CSV tile file: each line is a row of comma-separated
// values, first line is y=0. Non-zero means passable. Missing values are
// impassable; blank lines and lines starting with '#' are skipped.
func ParseTiles(r io.Reader, width, height int32) ([]bool, error) {
	passable := make([]bool, int(width)*int(height))

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	y := 0
	for scanner.Scan() && y < int(height) {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		x := 0
		for _, tok := range strings.Split(line, ",") {
			if x >= int(width) {
				break
			}
			val, err := strconv.Atoi(strings.TrimSpace(tok))
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", y, x, err)
			}
			passable[y*int(width)+x] = val != 0
			x++
		}
		y++
	}
	return passable, scanner.Err()
}
