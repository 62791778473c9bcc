package main

import (
	"fmt"
	"os"

	"github.com/cuemby/hutch/pkg/manager"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage test jobs",
}

var jobSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a job from a YAML manifest",
	Long: `Submit a test job described by a YAML manifest.

Examples:
  # Submit a job
  hutch job submit -f suspend-resume.yaml

Manifest format:
  apiVersion: hutch/v1
  kind: Job
  metadata:
    name: platform_SuspendResume
  spec:
    owner: lab-tools
    priority: 40
    aclGroups: [acl_cros_test]
    dependencies: [board_kukui]
    hosts: [chromeos1-row2-rack4-host6]
    metaHosts: [board_kukui+pool_suites]`,
	RunE: runJobSubmit,
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs and their queue entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Shutdown() }()

		jobs, err := mgr.ListJobs()
		if err != nil {
			return err
		}
		fmt.Printf("%-38s %-30s %-10s %s\n", "ID", "NAME", "PRIORITY", "ENTRIES")
		for _, job := range jobs {
			entries, err := mgr.ListEntriesByJob(job.ID)
			if err != nil {
				return err
			}
			states := make(map[string]int)
			for _, e := range entries {
				states[string(e.Status)]++
			}
			fmt.Printf("%-38s %-30s %-10d %v\n", job.ID, job.Name, job.Priority, states)
		}
		return nil
	},
}

// JobResource is the YAML manifest shape for job submission
type JobResource struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       JobResourceSpec  `yaml:"spec"`
}

type ResourceMetadata struct {
	Name string `yaml:"name"`
}

type JobResourceSpec struct {
	Owner        string   `yaml:"owner"`
	Priority     int      `yaml:"priority"`
	ACLGroups    []string `yaml:"aclGroups,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty"`
	Hosts        []string `yaml:"hosts,omitempty"`
	MetaHosts    []string `yaml:"metaHosts,omitempty"`
	ParentJobID  string   `yaml:"parentJobId,omitempty"`
}

func runJobSubmit(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}

	var resource JobResource
	if err := yaml.Unmarshal(data, &resource); err != nil {
		return fmt.Errorf("failed to parse YAML: %v", err)
	}
	if resource.Kind != "Job" {
		return fmt.Errorf("unsupported resource kind: %s", resource.Kind)
	}

	mgr, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Shutdown() }()

	job, err := mgr.SubmitJob(manager.JobSpec{
		Name:         resource.Metadata.Name,
		Owner:        resource.Spec.Owner,
		Priority:     resource.Spec.Priority,
		ACLGroups:    resource.Spec.ACLGroups,
		Dependencies: resource.Spec.Dependencies,
		Hosts:        resource.Spec.Hosts,
		MetaHosts:    resource.Spec.MetaHosts,
		ParentJobID:  resource.Spec.ParentJobID,
	})
	if err != nil {
		return err
	}

	entries, err := mgr.ListEntriesByJob(job.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Submitted job %s (%s) with %d queue entries\n", job.Name, job.ID, len(entries))
	return nil
}

func init() {
	jobSubmitCmd.Flags().StringP("file", "f", "", "YAML manifest to submit (required)")
	jobSubmitCmd.Flags().String("data-dir", "/var/lib/hutch", "Directory for the lab database")
	_ = jobSubmitCmd.MarkFlagRequired("file")

	jobListCmd.Flags().String("data-dir", "/var/lib/hutch", "Directory for the lab database")

	jobCmd.AddCommand(jobSubmitCmd)
	jobCmd.AddCommand(jobListCmd)
}
