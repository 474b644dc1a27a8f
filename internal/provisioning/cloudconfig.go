package provisioning

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const cloudConfigHeader = "#cloud-config\n"

type cloudConfig struct {
	RunCmd []string `yaml:"runcmd"`
}

// GenerateCloudConfig renders setup commands as cloud-init user-data that
// runs them once on first boot, in order.
func GenerateCloudConfig(commands []string) (string, error) {
	body, err := yaml.Marshal(cloudConfig{RunCmd: commands})
	if err != nil {
		return "", fmt.Errorf("failed to render cloud-config: %w", err)
	}
	return cloudConfigHeader + string(body), nil
}
