package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"gopkg.in/yaml.v3"
)

// StartWatch 监听配置变化，在变更时回调 onChange(old, new)
// 仅在配置了 Nacos 时生效；本地文件模式不做热更新
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	if strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")) == "" {
		fmt.Println("[Config] Nacos 未配置，跳过配置监听")
		return nil
	}
	return startNacosWatch(ctx, onChange)
}

// nacosEnv 汇总监听所需的全部环境变量
type nacosEnv struct {
	serverAddr string
	dataID     string
	namespace  string
	group      string
	username   string
	password   string
	timeoutMS  int
}

func loadNacosEnv() nacosEnv {
	env := nacosEnv{
		serverAddr: strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")),
		dataID:     strings.TrimSpace(os.Getenv("NACOS_DATA_ID")),
		namespace:  strings.TrimSpace(os.Getenv("NACOS_NAMESPACE")),
		group:      strings.TrimSpace(os.Getenv("NACOS_GROUP")),
		username:   strings.TrimSpace(os.Getenv("NACOS_USERNAME")),
		password:   strings.TrimSpace(os.Getenv("NACOS_PASSWORD")),
		timeoutMS:  5000,
	}
	if env.dataID == "" {
		env.dataID = "threed-server.yaml"
	}
	if env.namespace == "" {
		env.namespace = "public"
	}
	if env.group == "" {
		env.group = "DEFAULT_GROUP"
	}
	if s := strings.TrimSpace(os.Getenv("NACOS_TIMEOUT_MS")); s != "" {
		if t, err := strconv.Atoi(s); err == nil && t > 0 {
			env.timeoutMS = t
		}
	}
	return env
}

// parseServerAddrs 解析逗号分隔的 host:port 列表
func parseServerAddrs(addrList string) ([]constant.ServerConfig, error) {
	var out []constant.ServerConfig
	for _, addr := range strings.Split(addrList, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		host, portStr, ok := strings.Cut(addr, ":")
		if !ok {
			return nil, fmt.Errorf("invalid NACOS_SERVER_ADDR format: %s", addr)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid port in NACOS_SERVER_ADDR: %s", portStr)
		}
		out = append(out, constant.ServerConfig{IpAddr: host, Port: port})
	}
	if len(out) == 0 {
		return nil, errors.New("no valid server address in NACOS_SERVER_ADDR")
	}
	return out, nil
}

// decodeConfig 按 dataId 扩展名挑选解码器，无扩展名时先 YAML 后 JSON
func decodeConfig(dataID, data string) (*Config, error) {
	var cfg Config
	switch filepath.Ext(dataID) {
	case ".json":
		if err := json.Unmarshal([]byte(data), &cfg); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
			if err2 := json.Unmarshal([]byte(data), &cfg); err2 != nil {
				return nil, err
			}
		}
	}
	return &cfg, nil
}

// startNacosWatch 启动 Nacos 配置监听
func startNacosWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	env := loadNacosEnv()

	serverConfigs, err := parseServerAddrs(env.serverAddr)
	if err != nil {
		return err
	}

	clientConfig := constant.ClientConfig{
		NamespaceId:         env.namespace,
		TimeoutMs:           uint64(env.timeoutMS),
		NotLoadCacheAtStart: true,
		LogDir:              "/tmp/nacos/log",
		CacheDir:            "/tmp/nacos/cache",
		LogLevel:            "warn",
	}
	if env.username != "" && env.password != "" {
		clientConfig.Username = env.username
		clientConfig.Password = env.password
	}

	configClient, err := clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: serverConfigs,
	})
	if err != nil {
		return fmt.Errorf("failed to create nacos config client for watch: %w", err)
	}
	nacosConfigClient = configClient

	err = configClient.ListenConfig(vo.ConfigParam{
		DataId: env.dataID,
		Group:  env.group,
		OnChange: func(namespace, group, dataId, data string) {
			fmt.Printf("[Config] Nacos 配置变更: namespace=%s, group=%s, dataId=%s\n",
				namespace, group, dataId)

			newCfg, parseErr := decodeConfig(dataId, data)
			if parseErr != nil {
				fmt.Printf("[Config] 解析 Nacos 配置失败: error=%v\n", parseErr)
				return
			}

			oldCfg := GetCurrent()
			SetCurrent(newCfg)

			if onChange != nil {
				onChange(oldCfg, newCfg)
			}
			fmt.Println("[Config] Nacos 配置已更新")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to listen nacos config: %w", err)
	}

	fmt.Printf("[Config] Nacos 配置监听已启动: server=%s, dataId=%s, namespace=%s, group=%s\n",
		env.serverAddr, env.dataID, env.namespace, env.group)
	return nil
}
