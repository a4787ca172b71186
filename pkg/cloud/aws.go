// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package cloud

import (
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const awsMetadataEndpoint = "http://169.254.169.254/latest/meta-data/instance-type"

// AWSInstanceType probes the EC2 metadata service for the instance
// type. An empty string is returned when the host is not an EC2
// instance (the probe is expected to fail fast outside of EC2).
func AWSInstanceType() string {
	return awsInstanceType(awsMetadataEndpoint)
}

func awsInstanceType(endpoint string) string {
	zap.L().Sugar().Debug("Checking the EC2 instance type")
	client := http.Client{
		Timeout: 500 * time.Millisecond,
	}
	resp, err := client.Get(endpoint)
	if err != nil {
		zap.L().Sugar().Debug("Can not contact the AWS metadata API, not running in EC2")
		return ""
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		zap.L().Sugar().Debug("Can not read the AWS metadata API response body")
		return ""
	}
	instanceType := string(body)
	zap.L().Sugar().Debugf("Running on '%s' EC2 instance", instanceType)
	return instanceType
}

// IsAWSi3NonMetalInstance returns true for virtualized i3 instances
// (e.g. i3.4xlarge). On those the Xen hypervisor over-allocates NVMe
// queues and only queues 1..numCPU carry data.
func IsAWSi3NonMetalInstance() bool {
	return isI3NonMetal(AWSInstanceType())
}

func isI3NonMetal(instanceType string) bool {
	return strings.HasPrefix(instanceType, "i3.") &&
		!strings.Contains(instanceType, "metal")
}
