package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "GRIDSIM_CONFIG"

type Config struct {
	Sim       SimConfig       `toml:"sim"`
	World     WorldConfig     `toml:"world"`
	Movement  MovementConfig  `toml:"movement"`
	Vision    VisionConfig    `toml:"vision"`
	Scripting ScriptingConfig `toml:"scripting"`
	Database  DatabaseConfig  `toml:"database"`
	Observer  ObserverConfig  `toml:"observer"`
	Logging   LoggingConfig   `toml:"logging"`
}

type SimConfig struct {
	Name         string        `toml:"name"`
	TickRate     time.Duration `toml:"tick_rate"`
	Seed         int64         `toml:"seed"`    // 0 = time-based
	Workers      int           `toml:"workers"` // think parallelism, 0 = GOMAXPROCS
	TimeSpeed    float64       `toml:"time_speed"`
	StartMinutes int           `toml:"start_minutes"`
	StartTime    int64         // set at boot, not from config
}

type WorldConfig struct {
	MapList         string `toml:"map_list"`
	TileDir         string `toml:"tile_dir"`
	MapName         string `toml:"map_name"` // empty = open map of Width x Height
	Width           int32  `toml:"width"`
	Height          int32  `toml:"height"`
	Bones           int    `toml:"bones"`
	Trashcans       int    `toml:"trashcans"`
	Dogs            int    `toml:"dogs"`
	Workers         int    `toml:"workers"`
	Wanderers       int    `toml:"wanderers"`
	Hunters         int    `toml:"hunters"`
	Scripted        int    `toml:"scripted"`
	RespawnConsumed bool   `toml:"respawn_consumed"`
}

type MovementConfig struct {
	MinSpeed        float64 `toml:"min_speed"`
	MaxSpeed        float64 `toml:"max_speed"`
	ArriveThreshold float64 `toml:"arrive_threshold"`
	ReliableMin     int     `toml:"reliable_min"`
	ReliableMax     int     `toml:"reliable_max"`
	ReliableCapMin  int     `toml:"reliable_cap_min"`
	Detours         []int   `toml:"detours"`
	UnstuckPriority int     `toml:"unstuck_priority"`
	CooldownMin     int     `toml:"cooldown_min"`
	CooldownMax     int     `toml:"cooldown_max"`
}

type VisionConfig struct {
	Limit    int `toml:"limit"`
	Interval int `toml:"interval"` // ticks
}

type ScriptingConfig struct {
	Dir string `toml:"dir"` // empty disables scripted agents
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // "", "postgres" or "sqlite"
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	SaveInterval    int           `toml:"save_interval"` // ticks
}

type ObserverConfig struct {
	BindAddress string `toml:"bind_address"` // empty disables
	Interval    int    `toml:"interval"`     // ticks
	RecordDir   string `toml:"record_dir"`   // empty disables replay recording
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Path returns the config path from the environment or the default.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return "config/gridsim.toml"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	cfg.Sim.StartTime = time.Now().Unix()
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Sim.TickRate <= 0 {
		errs = append(errs, errors.New("sim.tick_rate must be positive"))
	}
	if c.Movement.MinSpeed <= 0 || c.Movement.MaxSpeed < c.Movement.MinSpeed {
		errs = append(errs, errors.New("movement speeds must satisfy 0 < min_speed <= max_speed"))
	}
	if c.Movement.ReliableMin < 1 || c.Movement.ReliableMax < c.Movement.ReliableMin {
		errs = append(errs, errors.New("movement reliable bounds must satisfy 1 <= reliable_min <= reliable_max"))
	}
	if c.Movement.CooldownMax < c.Movement.CooldownMin {
		errs = append(errs, errors.New("movement.cooldown_max below cooldown_min"))
	}
	if c.World.MapName == "" && (c.World.Width <= 0 || c.World.Height <= 0) {
		errs = append(errs, errors.New("world needs map_name or a positive width and height"))
	}
	switch c.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Sim: SimConfig{
			Name:         "gridsim",
			TickRate:     50 * time.Millisecond,
			TimeSpeed:    1.0,
			StartMinutes: 8 * 60,
		},
		World: WorldConfig{
			MapList:   "data/map_list.yaml",
			TileDir:   "data/maps",
			Width:     32,
			Height:    32,
			Bones:     20,
			Trashcans: 2,
			Dogs:      4,
			Workers:   2,
			Wanderers: 6,
			Hunters:   2,
		},
		Movement: MovementConfig{
			MinSpeed:        2.0,
			MaxSpeed:        4.0,
			ArriveThreshold: 0.01,
			ReliableMin:     4,
			ReliableMax:     80,
			ReliableCapMin:  20,
			Detours:         []int{6, 8, 16, 32},
			UnstuckPriority: 100,
			CooldownMin:     10,
			CooldownMax:     60,
		},
		Vision: VisionConfig{
			Limit:    10,
			Interval: 5,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			SaveInterval:    200,
		},
		Observer: ObserverConfig{
			Interval: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
