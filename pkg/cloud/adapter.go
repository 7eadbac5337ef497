package cloud

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerinstance/armcontainerinstance"

	"github.com/merabytes/acido/pkg/acido"
	"github.com/merabytes/acido/pkg/log"
	"github.com/merabytes/acido/pkg/metrics"
)

// Adapter is the Cloud Adapter: the only package that talks to the
// container-service management API directly.
type Adapter struct {
	groups *armcontainerinstance.ContainerGroupsClient

	resourceGroup string
}

// NewAdapter builds an Adapter bound to a subscription and resource group.
func NewAdapter(cred azcore.TokenCredential, subscriptionID, resourceGroup string) (*Adapter, error) {
	groups, err := armcontainerinstance.NewContainerGroupsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("new container groups client: %w", err)
	}
	return &Adapter{groups: groups, resourceGroup: resourceGroup}, nil
}

// CreateGroup provisions group's instances as a single container group and
// blocks until the provider reaches a terminal provisioning state. On
// success it stamps group.State to GroupRunning; on failure it returns a
// classified *acido.CloudError and leaves group.State at GroupFailed.
func (a *Adapter) CreateGroup(ctx context.Context, group *acido.ContainerGroup) error {
	logger := log.WithGroup(group.Name, group.Region)
	timer := metrics.NewTimer()
	logger.Info().Int("instances", len(group.Instances)).Msg("provisioning container group")

	containers := make([]*armcontainerinstance.Container, 0, len(group.Instances))
	for _, inst := range group.Instances {
		env := make([]*armcontainerinstance.EnvironmentVariable, 0, len(group.Env)+3)
		for k, v := range group.Env {
			env = append(env, &armcontainerinstance.EnvironmentVariable{Name: to.Ptr(k), Value: to.Ptr(v)})
		}
		env = append(env,
			&armcontainerinstance.EnvironmentVariable{Name: to.Ptr("ACIDO_INPUT_UUID"), Value: to.Ptr(inst.ShardID)},
			&armcontainerinstance.EnvironmentVariable{Name: to.Ptr("ACIDO_TASK"), Value: to.Ptr(group.Command)},
			&armcontainerinstance.EnvironmentVariable{Name: to.Ptr("ACIDO_COMPLETION_UUID"), Value: to.Ptr(inst.CompletionUUID)},
		)

		containers = append(containers, &armcontainerinstance.Container{
			Name: to.Ptr(inst.Name),
			Properties: &armcontainerinstance.ContainerProperties{
				Image:                to.Ptr(group.Image),
				EnvironmentVariables: env,
				Resources: &armcontainerinstance.ResourceRequirements{
					Requests: &armcontainerinstance.ResourceRequests{
						CPU:        to.Ptr(group.Resources.CPUCores),
						MemoryInGB: to.Ptr(group.Resources.MemoryGB),
					},
				},
			},
		})
	}

	properties := &armcontainerinstance.ContainerGroupPropertiesProperties{
		OSType:        to.Ptr(armcontainerinstance.OperatingSystemTypesLinux),
		Containers:    containers,
		RestartPolicy: to.Ptr(armcontainerinstance.ContainerGroupRestartPolicyNever),
	}
	if group.RegistryCredential != "" {
		properties.ImageRegistryCredentials = []*armcontainerinstance.ImageRegistryCredential{
			{Server: to.Ptr(group.RegistryCredential)},
		}
	}
	if group.SubnetID != "" {
		properties.SubnetIDs = []*armcontainerinstance.ContainerGroupSubnetID{
			{ID: to.Ptr(group.SubnetID)},
		}
	}

	poller, err := a.groups.BeginCreateOrUpdate(ctx, a.resourceGroup, group.Name, armcontainerinstance.ContainerGroup{
		Location:   to.Ptr(group.Region),
		Properties: properties,
	}, nil)
	if err != nil {
		group.State = acido.GroupFailed
		group.LastError = classify("create_group", err)
		return group.LastError
	}

	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		group.State = acido.GroupFailed
		group.LastError = classify("create_group", err)
		return group.LastError
	}

	if resp.Properties != nil && resp.Properties.ProvisioningState != nil && *resp.Properties.ProvisioningState == "Failed" {
		group.State = acido.GroupFailed
		group.LastError = acido.NewCloudError("create_group", acido.ClassFatal, fmt.Errorf("provider reported Failed provisioning state"))
		return group.LastError
	}

	group.State = acido.GroupRunning
	metrics.ContainerGroupsTotal.WithLabelValues(string(acido.GroupRunning)).Inc()
	timer.ObserveDurationVec(metrics.ProvisionDuration, group.Region)
	logger.Info().Msg("container group running")
	return nil
}

// DeleteGroup removes a container group. A NotFound error is swallowed:
// teardown of an already-gone group is a success.
func (a *Adapter) DeleteGroup(ctx context.Context, name string) error {
	poller, err := a.groups.BeginDelete(ctx, a.resourceGroup, name, nil)
	if err != nil {
		ce := classify("delete_group", err)
		if ce.Class == acido.ClassNotFound {
			return nil
		}
		return ce
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		ce := classify("delete_group", err)
		if ce.Class == acido.ClassNotFound {
			return nil
		}
		return ce
	}
	return nil
}

// ListGroups returns the names of every container group in the resource
// group, regardless of which fleet created them.
func (a *Adapter) ListGroups(ctx context.Context) ([]string, error) {
	var names []string
	pager := a.groups.NewListByResourceGroupPager(a.resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, classify("list_groups", err)
		}
		for _, cg := range page.Value {
			if cg.Name != nil {
				names = append(names, *cg.Name)
			}
		}
	}
	return names, nil
}

// GetLogs fetches the current log tail for one container within a group.
func (a *Adapter) GetLogs(ctx context.Context, groupName, containerName string) (string, error) {
	resp, err := a.groups.GetLogs(ctx, a.resourceGroup, groupName, containerName, nil)
	if err != nil {
		return "", classify("get_logs", err)
	}
	if resp.Content == nil {
		return "", nil
	}
	return *resp.Content, nil
}

// GroupExists reports whether a container group with the given name is
// still present, used by the detector to notice out-of-band deletion.
func (a *Adapter) GroupExists(ctx context.Context, name string) (bool, error) {
	_, err := a.groups.Get(ctx, a.resourceGroup, name, nil)
	if err != nil {
		ce := classify("get_group", err)
		if ce.Class == acido.ClassNotFound {
			return false, nil
		}
		return false, ce
	}
	return true, nil
}
