// Package network implements the Network Stack Manager: it provisions and
// tears down the {public IP, NAT gateway, virtual network, delegated subnet}
// quadruple that container groups share for outbound egress, and it does so
// in a strict order so a failure partway through never leaves an orphaned
// resource that ARM would otherwise refuse to delete.
//
// Create order: public IP, then NAT gateway (bound to that IP), then a
// virtual network holding one subnet delegated to
// Microsoft.ContainerInstance/containerGroups, then a subnet update that
// attaches the gateway. Destroy runs the reverse: detach the gateway,
// delete the virtual network (which takes its subnet with it), delete the
// gateway, delete the public IP. Destroy retries on a 409 Conflict (a
// container group is still attached to the subnet) with capped backoff
// before giving up and returning a ResourceBusyError.
package network
