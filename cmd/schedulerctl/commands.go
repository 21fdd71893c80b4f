package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/service"
)

// optimizeInput mirrors the POST /scheduling/optimize payload.
type optimizeInput struct {
	Decisions   []models.SchedulingDecision    `json:"decisions"`
	Constraints models.OptimizationConstraints `json:"constraints"`
}

func validateConfigCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Apply a configuration patch to the defaults and validate the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := patchedConfig(file)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON configuration patch")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func optimizeCmd() *cobra.Command {
	var (
		file         string
		configFile   string
		alternatives int
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize the decisions in a local file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var input optimizeInput
			if err := decodeFile(file, &input); err != nil {
				return err
			}
			if len(input.Decisions) == 0 {
				return fmt.Errorf("%s: no decisions to optimize", file)
			}
			if cmd.Flags().Changed("alternatives") {
				input.Constraints.AlternativeCount = alternatives
			}

			cfg := service.DefaultEngineConfig()
			if configFile != "" {
				patched, err := patchedConfig(configFile)
				if err != nil {
					return err
				}
				cfg = patched
			}
			engineConfig, err := service.NewEngineConfigService(cfg, nil, logr)
			if err != nil {
				return err
			}

			optimizer := service.NewOptimizationService(engineConfig, nil, nil, nil, nil, logr)
			solution, err := optimizer.Optimize(cmd.Context(), input.Decisions, input.Constraints)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), solution)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file with decisions and constraints")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Optional configuration patch applied before optimizing")
	cmd.Flags().IntVar(&alternatives, "alternatives", 0, "Number of alternative solutions, negative for none")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func patchedConfig(path string) (service.EngineConfig, error) {
	var patch dto.EngineConfigPatch
	if err := decodeFile(path, &patch); err != nil {
		return service.EngineConfig{}, err
	}
	cfg := service.DefaultEngineConfig().Apply(patch)
	if err := cfg.Validate(); err != nil {
		return service.EngineConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// decodeFile reads YAML (a superset of JSON) and maps it onto dest through its json tags.
func decodeFile(path string, dest interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	encoded, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := json.Unmarshal(encoded, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// normalizeYAML turns yaml.v3 map keys into strings so the tree is JSON encodable.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, item := range t {
			t[k] = normalizeYAML(item)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []interface{}:
		for i, item := range t {
			t[i] = normalizeYAML(item)
		}
		return t
	default:
		return v
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
