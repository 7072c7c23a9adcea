// Package config 负责加载 TaskHub 守护进程的配置：YAML 或带注释的 JSON 文件，
// 默认值，以及 TASKHUB_* 环境变量覆盖。
package config
