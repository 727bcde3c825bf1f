package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/dkarras/load-tracker/config"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		viper.Reset()

		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				configContent := `
tracker:
  max_workload: 50

dispatch:
  task_cost: 2
  failure_threshold: 3
  reset_timeout: "10s"

servers:
  - name: "worker-1"
    workload: 0
  - name: "worker-2"
    workload: 5

logging:
  level: "info"
  environment: "dev"
`
				configPath := filepath.Join(tempDir, "config.yaml")
				err := os.WriteFile(configPath, []byte(configContent), 0644)
				Expect(err).NotTo(HaveOccurred())

				err = os.Chdir(tempDir)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
			})

			It("should parse the tracker cap", func() {
				cfg, _ := config.Load()
				Expect(cfg.Tracker.MaxWorkload).To(Equal(50))
			})

			It("should parse dispatch settings", func() {
				cfg, _ := config.Load()
				Expect(cfg.Dispatch.TaskCost).To(Equal(2))
				Expect(cfg.Dispatch.FailureThreshold).To(Equal(3))
				Expect(cfg.ResetTimeout()).To(Equal(10 * time.Second))
			})

			It("should parse seed servers", func() {
				cfg, _ := config.Load()
				Expect(cfg.Servers).To(HaveLen(2))
				Expect(cfg.Servers[0].Name).To(Equal("worker-1"))
				Expect(cfg.Servers[1].Workload).To(Equal(5))
			})
		})

		Context("without a config file", func() {
			BeforeEach(func() {
				err := os.Chdir(tempDir)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should fall back to defaults", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Tracker.MaxWorkload).To(Equal(0))
				Expect(cfg.Dispatch.TaskCost).To(Equal(1))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelInfo))
			})
		})
	})

	Describe("Validate", func() {
		var cfg *config.Config

		BeforeEach(func() {
			cfg = &config.Config{
				Tracker: config.TrackerConfig{MaxWorkload: 0},
				Dispatch: config.DispatchConfig{
					TaskCost:         1,
					FailureThreshold: 5,
					ResetTimeout:     "30s",
				},
				Logging: config.LoggingConfig{
					Level:       config.LogLevelInfo,
					Environment: config.EnvDev,
				},
			}
		})

		It("should accept a valid config", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject a negative tracker cap", func() {
			cfg.Tracker.MaxWorkload = -1
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a zero task cost", func() {
			cfg.Dispatch.TaskCost = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a malformed reset timeout", func() {
			cfg.Dispatch.ResetTimeout = "soon"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject an unknown log level", func() {
			cfg.Logging.Level = "verbose"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a server without a name", func() {
			cfg.Servers = []config.ServerConfig{{Name: "", Workload: 0}}
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a server with negative workload", func() {
			cfg.Servers = []config.ServerConfig{{Name: "worker-1", Workload: -2}}
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})

	Describe("ResetTimeout", func() {
		It("should fall back to 30s on a malformed value", func() {
			cfg := &config.Config{
				Dispatch: config.DispatchConfig{ResetTimeout: "bogus"},
			}
			Expect(cfg.ResetTimeout()).To(Equal(30 * time.Second))
		})
	})
})
