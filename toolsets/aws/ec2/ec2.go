package awsec2

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"awsdev/internal/mcp"
	"awsdev/internal/session"
)

var instanceStates = []string{"pending", "running", "shutting-down", "terminated", "stopping", "stopped"}

type ClientFunc func(context.Context, *session.Session, string) (*ec2.Client, string, error)

type Service struct {
	ctx       mcp.ToolsetContext
	ec2Client ClientFunc
	toolsetID string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, ec2Client ClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, ec2Client: ec2Client, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "aws_dev_list_ec2_instances",
			Description: "List EC2 instances, optionally filtered by state.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListInstances(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListInstances,
		},
	}
}

func (s *Service) handleListInstances(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	region := toString(req.Arguments["region"])
	state := strings.TrimSpace(toString(req.Arguments["state"]))
	limit := toInt(req.Arguments["limit"], 100)
	client, usedRegion, err := s.ec2Client(ctx, req.Session, region)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	input := &ec2.DescribeInstancesInput{}
	if state != "" {
		input.Filters = []ec2types.Filter{{Name: aws.String("instance-state-name"), Values: []string{state}}}
	}
	instances := []map[string]any{}
	for {
		out, err := client.DescribeInstances(ctx, input)
		if err != nil {
			return mcp.ToolResult{}, err
		}
		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, summarizeInstance(inst))
			}
		}
		if limit > 0 && len(instances) >= limit {
			instances = instances[:limit]
			break
		}
		if aws.ToString(out.NextToken) == "" {
			break
		}
		input.NextToken = out.NextToken
	}
	return mcp.ToolResult{Data: s.ctx.Redactor.RedactValue(map[string]any{
		"region":    usedRegion,
		"instances": instances,
		"count":     len(instances),
	})}, nil
}

func summarizeInstance(inst ec2types.Instance) map[string]any {
	sgIDs := []string{}
	for _, sg := range inst.SecurityGroups {
		sgIDs = append(sgIDs, aws.ToString(sg.GroupId))
	}
	state := ""
	if inst.State != nil {
		state = string(inst.State.Name)
	}
	zone := ""
	if inst.Placement != nil {
		zone = aws.ToString(inst.Placement.AvailabilityZone)
	}
	out := map[string]any{
		"id":               aws.ToString(inst.InstanceId),
		"state":            state,
		"type":             string(inst.InstanceType),
		"imageId":          aws.ToString(inst.ImageId),
		"vpcId":            aws.ToString(inst.VpcId),
		"subnetId":         aws.ToString(inst.SubnetId),
		"availabilityZone": zone,
		"privateIp":        aws.ToString(inst.PrivateIpAddress),
		"publicIp":         aws.ToString(inst.PublicIpAddress),
		"securityGroupIds": sgIDs,
		"tags":             tagMap(inst.Tags),
	}
	if inst.LaunchTime != nil {
		out["launchTime"] = aws.ToTime(inst.LaunchTime)
	}
	if inst.IamInstanceProfile != nil {
		out["iamInstanceProfile"] = aws.ToString(inst.IamInstanceProfile.Arn)
	}
	return out
}

func tagMap(tags []ec2types.Tag) map[string]string {
	out := map[string]string{}
	for _, tag := range tags {
		key := aws.ToString(tag.Key)
		if key == "" {
			continue
		}
		out[key] = aws.ToString(tag.Value)
	}
	return out
}

func toString(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func toInt(value any, fallback int) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return int(parsed)
		}
	}
	return fallback
}
