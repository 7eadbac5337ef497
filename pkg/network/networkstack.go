package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v4"

	"github.com/merabytes/acido/pkg/acido"
	"github.com/merabytes/acido/pkg/log"
	"github.com/merabytes/acido/pkg/metrics"
)

const (
	addressSpacePrefix = "10.88.0.0/16"
	subnetPrefix       = "10.88.0.0/24"
	aciDelegationName  = "aci-delegation"
	aciDelegationSvc   = "Microsoft.ContainerInstance/containerGroups"

	destroyMaxAttempts = 5
)

// destroyBaseBackoff and destroyMaxBackoff are vars, not consts, so tests
// can shrink them instead of sitting through the production schedule.
var (
	destroyBaseBackoff = 2 * time.Second
	destroyMaxBackoff  = 30 * time.Second
)

// Manager creates and destroys NetworkStacks: the {public IP, NAT gateway,
// virtual network, delegated subnet} quadruple container groups attach to
// for shared outbound egress.
type Manager struct {
	publicIPs *armnetwork.PublicIPAddressesClient
	gateways  *armnetwork.NatGatewaysClient
	vnets     *armnetwork.VirtualNetworksClient
	subnets   *armnetwork.SubnetsClient

	resourceGroup string
	location      string
}

// NewManager builds a Manager bound to a resource group and location using
// cred for authentication against the network resource provider.
func NewManager(cred azcore.TokenCredential, subscriptionID, resourceGroup, location string) (*Manager, error) {
	ipClient, err := armnetwork.NewPublicIPAddressesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("new public ip client: %w", err)
	}
	gwClient, err := armnetwork.NewNatGatewaysClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("new nat gateway client: %w", err)
	}
	vnetClient, err := armnetwork.NewVirtualNetworksClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("new vnet client: %w", err)
	}
	subnetClient, err := armnetwork.NewSubnetsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("new subnet client: %w", err)
	}

	return &Manager{
		publicIPs:     ipClient,
		gateways:      gwClient,
		vnets:         vnetClient,
		subnets:       subnetClient,
		resourceGroup: resourceGroup,
		location:      location,
	}, nil
}

// Create provisions a NetworkStack named base, in order: public IP, NAT
// gateway, virtual network with a delegated subnet, then a subnet update
// attaching the gateway. Each step is idempotent; re-running Create against
// an already-provisioned stack converges rather than erroring.
func (m *Manager) Create(ctx context.Context, base string) (acido.NetworkStack, error) {
	stack := acido.DerivedNetworkStackNames(base)
	logger := log.WithComponent("network")
	timer := metrics.NewTimer()

	logger.Info().Str("stack", base).Msg("creating network stack")

	ipID, err := m.createPublicIP(ctx, stack.PublicIPName)
	if err != nil {
		metrics.TeardownsTotal.WithLabelValues("network_stack", "create_error").Inc()
		return acido.NetworkStack{}, fmt.Errorf("create public ip: %w", err)
	}

	gwID, err := m.createNatGateway(ctx, stack.GatewayName, ipID)
	if err != nil {
		return acido.NetworkStack{}, fmt.Errorf("create nat gateway: %w", err)
	}

	if err := m.createVNetWithSubnet(ctx, stack.VNetName, stack.SubnetName); err != nil {
		return acido.NetworkStack{}, fmt.Errorf("create vnet: %w", err)
	}

	if err := m.attachGateway(ctx, stack.VNetName, stack.SubnetName, gwID); err != nil {
		return acido.NetworkStack{}, fmt.Errorf("attach nat gateway to subnet: %w", err)
	}

	ip, err := m.publicIPAddress(ctx, stack.PublicIPName)
	if err != nil {
		return acido.NetworkStack{}, fmt.Errorf("read public ip address: %w", err)
	}
	stack.IPv4 = ip

	timer.ObserveDurationVec(metrics.ProvisionDuration, m.location)
	logger.Info().Str("stack", base).Str("ipv4", stack.IPv4).Msg("network stack ready")
	return stack, nil
}

// Destroy tears down stack in reverse creation order: detach the gateway,
// delete the virtual network, delete the gateway, delete the public IP.
// Each delete is retried on a 409 Conflict (a container group is still
// attached) with capped exponential backoff, per destroyMaxAttempts.
func (m *Manager) Destroy(ctx context.Context, stack acido.NetworkStack) error {
	logger := log.WithComponent("network")
	timer := metrics.NewTimer()
	logger.Info().Str("stack", stack.Name).Msg("destroying network stack")

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"detach_gateway", func(ctx context.Context) error { return m.detachGateway(ctx, stack.VNetName, stack.SubnetName) }},
		{"vnet", func(ctx context.Context) error { return m.deleteVNet(ctx, stack.VNetName) }},
		{"nat_gateway", func(ctx context.Context) error { return m.deleteNatGateway(ctx, stack.GatewayName) }},
		{"public_ip", func(ctx context.Context) error { return m.deletePublicIP(ctx, stack.PublicIPName) }},
	}

	for _, step := range steps {
		if err := retryOnConflict(ctx, step.fn); err != nil {
			metrics.TeardownsTotal.WithLabelValues("network_stack", "error").Inc()
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	metrics.TeardownsTotal.WithLabelValues("network_stack", "ok").Inc()
	timer.ObserveDurationVec(metrics.TeardownDuration, "network_stack")
	logger.Info().Str("stack", stack.Name).Msg("network stack destroyed")
	return nil
}

func (m *Manager) createPublicIP(ctx context.Context, name string) (string, error) {
	poller, err := m.publicIPs.BeginCreateOrUpdate(ctx, m.resourceGroup, name, armnetwork.PublicIPAddress{
		Location: to.Ptr(m.location),
		Properties: &armnetwork.PublicIPAddressPropertiesFormat{
			PublicIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodStatic),
		},
		SKU: &armnetwork.PublicIPAddressSKU{
			Name: to.Ptr(armnetwork.PublicIPAddressSKUNameStandard),
		},
	}, nil)
	if err != nil {
		return "", err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return "", err
	}
	if resp.ID == nil {
		return "", errors.New("public ip created with no ID")
	}
	return *resp.ID, nil
}

func (m *Manager) publicIPAddress(ctx context.Context, name string) (string, error) {
	resp, err := m.publicIPs.Get(ctx, m.resourceGroup, name, nil)
	if err != nil {
		return "", err
	}
	if resp.Properties == nil || resp.Properties.IPAddress == nil {
		return "", nil
	}
	return *resp.Properties.IPAddress, nil
}

func (m *Manager) createNatGateway(ctx context.Context, name, publicIPID string) (string, error) {
	poller, err := m.gateways.BeginCreateOrUpdate(ctx, m.resourceGroup, name, armnetwork.NatGateway{
		Location: to.Ptr(m.location),
		SKU: &armnetwork.NatGatewaySKU{
			Name: to.Ptr(armnetwork.NatGatewaySKUNameStandard),
		},
		Properties: &armnetwork.NatGatewayPropertiesFormat{
			PublicIPAddresses: []*armnetwork.SubResource{{ID: to.Ptr(publicIPID)}},
		},
	}, nil)
	if err != nil {
		return "", err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return "", err
	}
	if resp.ID == nil {
		return "", errors.New("nat gateway created with no ID")
	}
	return *resp.ID, nil
}

func (m *Manager) createVNetWithSubnet(ctx context.Context, vnetName, subnetName string) error {
	poller, err := m.vnets.BeginCreateOrUpdate(ctx, m.resourceGroup, vnetName, armnetwork.VirtualNetwork{
		Location: to.Ptr(m.location),
		Properties: &armnetwork.VirtualNetworkPropertiesFormat{
			AddressSpace: &armnetwork.AddressSpace{
				AddressPrefixes: []*string{to.Ptr(addressSpacePrefix)},
			},
			Subnets: []*armnetwork.Subnet{
				{
					Name: to.Ptr(subnetName),
					Properties: &armnetwork.SubnetPropertiesFormat{
						AddressPrefix: to.Ptr(subnetPrefix),
						Delegations: []*armnetwork.Delegation{
							{
								Name: to.Ptr(aciDelegationName),
								Properties: &armnetwork.ServiceDelegationPropertiesFormat{
									ServiceName: to.Ptr(aciDelegationSvc),
								},
							},
						},
					},
				},
			},
		},
	}, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (m *Manager) attachGateway(ctx context.Context, vnetName, subnetName, gatewayID string) error {
	poller, err := m.subnets.BeginCreateOrUpdate(ctx, m.resourceGroup, vnetName, subnetName, armnetwork.Subnet{
		Properties: &armnetwork.SubnetPropertiesFormat{
			AddressPrefix: to.Ptr(subnetPrefix),
			Delegations: []*armnetwork.Delegation{
				{
					Name: to.Ptr(aciDelegationName),
					Properties: &armnetwork.ServiceDelegationPropertiesFormat{
						ServiceName: to.Ptr(aciDelegationSvc),
					},
				},
			},
			NatGateway: &armnetwork.SubResource{ID: to.Ptr(gatewayID)},
		},
	}, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (m *Manager) detachGateway(ctx context.Context, vnetName, subnetName string) error {
	existing, err := m.subnets.Get(ctx, m.resourceGroup, vnetName, subnetName, nil)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if existing.Properties == nil || existing.Properties.NatGateway == nil {
		return nil
	}
	existing.Properties.NatGateway = nil

	poller, err := m.subnets.BeginCreateOrUpdate(ctx, m.resourceGroup, vnetName, subnetName, existing.Subnet, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (m *Manager) deleteVNet(ctx context.Context, name string) error {
	poller, err := m.vnets.BeginDelete(ctx, m.resourceGroup, name, nil)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (m *Manager) deleteNatGateway(ctx context.Context, name string) error {
	poller, err := m.gateways.BeginDelete(ctx, m.resourceGroup, name, nil)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (m *Manager) deletePublicIP(ctx context.Context, name string) error {
	poller, err := m.publicIPs.BeginDelete(ctx, m.resourceGroup, name, nil)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

// retryOnConflict retries fn with capped exponential backoff while it keeps
// failing with a 409 Conflict, and returns a ResourceBusyError once
// destroyMaxAttempts is exhausted.
func retryOnConflict(ctx context.Context, fn func(context.Context) error) error {
	backoff := destroyBaseBackoff
	var lastErr error
	for attempt := 1; attempt <= destroyMaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isConflict(lastErr) {
			return lastErr
		}
		if attempt == destroyMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > destroyMaxBackoff {
			backoff = destroyMaxBackoff
		}
	}
	return &acido.ResourceBusyError{Resource: "network stack", Reason: lastErr.Error()}
}

func isConflict(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusConflict
	}
	return false
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound
	}
	return false
}
