// Package config 负责 knnkit 的参数面：纯值配置的加载与校验、Pipeline Node 注册表，
// 以及按配置把相似度 → 邻域 → 推荐器串成一套可用的 Stack。
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/rerank"
	"github.com/rushteam/knnkit/similarity"
)

// EnvPrefix 是环境变量前缀。嵌套字段用双下划线分隔，例如 KNNKIT_REDIS__ADDR -> redis.addr。
const EnvPrefix = "KNNKIT_"

// Config 是全部纯值参数，没有隐藏的全局状态。
type Config struct {
	// Similarity 相似度类型，见 similarity.Kinds()，也接受 cosine / jaccard / llr 别名
	Similarity string  `koanf:"similarity" validate:"required"`
	Dense      bool    `koanf:"dense"`
	Alpha      float64 `koanf:"alpha" validate:"gte=0,lte=1"`

	// Mode 为 user（User-KNN）或 item（Item-KNN）
	Mode string `koanf:"mode" validate:"oneof=user item"`

	// Neighborhood 为 topk 或 threshold
	Neighborhood string  `koanf:"neighborhood" validate:"oneof=topk threshold"`
	K            int     `koanf:"k" validate:"gte=0"`
	Threshold    float64 `koanf:"threshold"`

	Exponent  int `koanf:"exponent" validate:"gte=0"`
	MaxLength int `koanf:"max_length" validate:"gte=0"`
	Workers   int `koanf:"workers" validate:"gte=0"`

	Strategy  string  `koanf:"strategy" validate:"oneof=mmr xquad"`
	Lambda    float64 `koanf:"lambda" validate:"gte=0,lte=1"`
	Cutoff    int     `koanf:"cutoff" validate:"gte=0"`
	Normalize bool    `koanf:"normalize"`

	LogLevel string `koanf:"log_level" validate:"oneof=trace debug info warn error"`
	LogJSON  bool   `koanf:"log_json"`

	Redis RedisConfig `koanf:"redis"`
}

// RedisConfig 是可选的 Redis 存储配置，Addr 为空表示使用内存存储。
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	DB        int    `koanf:"db" validate:"gte=0"`
	KeyPrefix string `koanf:"key_prefix"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Similarity:   string(similarity.VectorCosine),
		Alpha:        0.5,
		Mode:         "user",
		Neighborhood: "topk",
		K:            20,
		Exponent:     1,
		Workers:      1,
		Strategy:     "mmr",
		Lambda:       0.5,
		LogLevel:     "info",
		Redis:        RedisConfig{KeyPrefix: "cf"},
	}
}

var validate = validator.New()

// Validate 先做字段级校验，再做跨字段的语义校验。
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return core.NewConfigError(core.ModuleConfig, "%v", err)
	}
	if _, err := similarity.ParseKind(c.Similarity); err != nil {
		return err
	}
	if c.Neighborhood == "topk" && c.K <= 0 {
		return core.NewConfigError(core.ModuleConfig, "k must be > 0 for topk neighborhood, got %d", c.K)
	}
	return c.RerankOptions().Validate()
}

// Kind 返回解析后的相似度类型，需在 Validate 之后调用。
func (c *Config) Kind() similarity.Kind {
	kind, _ := similarity.ParseKind(c.Similarity)
	return kind
}

// RerankOptions 返回贪心重排参数。
func (c *Config) RerankOptions() rerank.Options {
	return rerank.Options{Lambda: c.Lambda, Cutoff: c.Cutoff, Normalize: c.Normalize}
}

// Load 依次叠加：默认值 -> YAML 文件（path 为空则跳过）-> 环境变量，最后校验。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform: KNNKIT_MAX_LENGTH -> max_length, KNNKIT_REDIS__ADDR -> redis.addr
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
