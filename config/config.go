package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Models  ModelsConfig  `mapstructure:"models"`
	Segment SegmentConfig `mapstructure:"segment"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ModelsConfig 推理模型服务的地址配置
type ModelsConfig struct {
	ProposerURL  string        `mapstructure:"proposer_url"`
	SegmenterURL string        `mapstructure:"segmenter_url"`
	InpainterURL string        `mapstructure:"inpainter_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SegmentConfig 分割请求的默认参数
type SegmentConfig struct {
	Conf                       float64 `mapstructure:"conf"`
	IoU                        float64 `mapstructure:"iou"`
	MaxMasks                   int     `mapstructure:"max_masks"`
	MinArea                    float64 `mapstructure:"min_area"`
	CombinedInpaint            bool    `mapstructure:"combined_inpaint"`
	DilatePixels               int     `mapstructure:"dilate_pixels"`
	InpaintScale               float64 `mapstructure:"inpaint_scale"`
	ExcludeBackground          string  `mapstructure:"exclude_background"`
	BackgroundOverlapThreshold float64 `mapstructure:"background_overlap_threshold"`
	MaxConcurrent              int     `mapstructure:"max_concurrent"`
	QueueTimeout               int     `mapstructure:"queue_timeout"`
}

// DebugConfig 调试快照配置
type DebugConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	OutputDir   string `mapstructure:"output_dir"`
	JPEGQuality int    `mapstructure:"jpeg_quality"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		// 如果加载失败，返回默认配置
		return getDefaultConfig()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 1*time.Hour)

	v.SetDefault("models.proposer_url", "http://localhost:9001")
	v.SetDefault("models.segmenter_url", "http://localhost:9002")
	v.SetDefault("models.inpainter_url", "http://localhost:9003")
	v.SetDefault("models.timeout", 120*time.Second)

	v.SetDefault("segment.conf", 0.25)
	v.SetDefault("segment.iou", 0.9)
	v.SetDefault("segment.max_masks", 20)
	v.SetDefault("segment.min_area", 0.005)
	v.SetDefault("segment.combined_inpaint", true)
	v.SetDefault("segment.dilate_pixels", 10)
	v.SetDefault("segment.inpaint_scale", 0.25)
	v.SetDefault("segment.exclude_background", "none")
	v.SetDefault("segment.background_overlap_threshold", 0.5)
	v.SetDefault("segment.max_concurrent", 3)
	v.SetDefault("segment.queue_timeout", 60)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.output_dir", "./output")
	v.SetDefault("debug.jpeg_quality", 90)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8000",
			Mode:         "debug",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      1 * time.Hour,
		},
		Models: ModelsConfig{
			ProposerURL:  "http://localhost:9001",
			SegmenterURL: "http://localhost:9002",
			InpainterURL: "http://localhost:9003",
			Timeout:      120 * time.Second,
		},
		Segment: SegmentConfig{
			Conf:                       0.25,
			IoU:                        0.9,
			MaxMasks:                   20,
			MinArea:                    0.005,
			CombinedInpaint:            true,
			DilatePixels:               10,
			InpaintScale:               0.25,
			ExcludeBackground:          "none",
			BackgroundOverlapThreshold: 0.5,
			MaxConcurrent:              3,
			QueueTimeout:               60,
		},
		Debug: DebugConfig{
			Enabled:     false,
			OutputDir:   "./output",
			JPEGQuality: 90,
		},
	}
}
