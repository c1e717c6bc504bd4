package awsiam

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/iam"

	"awsdev/internal/awstest"
	"awsdev/internal/mcp"
	"awsdev/internal/redact"
	"awsdev/internal/session"
)

func newService(rt *awstest.RoundTripper) *Service {
	client := iam.NewFromConfig(awstest.Config(rt))
	return &Service{
		ctx: mcp.ToolsetContext{Redactor: redact.New()},
		iamClient: func(context.Context, *session.Session, string) (*iam.Client, string, error) {
			return client, awstest.Region, nil
		},
	}
}

func roleResponses() map[string]string {
	assumeDoc := url.QueryEscape(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"Service":"lambda.amazonaws.com"},"Action":"sts:AssumeRole"}]}`)
	return map[string]string{
		"GetRole": fmt.Sprintf(`<GetRoleResponse xmlns="https://iam.amazonaws.com/doc/2010-05-08/">
  <GetRoleResult>
    <Role>
      <Path>/</Path>
      <RoleName>demo</RoleName>
      <RoleId>RID</RoleId>
      <Arn>arn:aws:iam::123:role/demo</Arn>
      <CreateDate>2024-01-01T00:00:00Z</CreateDate>
      <AssumeRolePolicyDocument>%s</AssumeRolePolicyDocument>
    </Role>
  </GetRoleResult>
</GetRoleResponse>`, assumeDoc),
		"ListAttachedRolePolicies": `<ListAttachedRolePoliciesResponse xmlns="https://iam.amazonaws.com/doc/2010-05-08/">
  <ListAttachedRolePoliciesResult>
    <AttachedPolicies>
      <member><PolicyName>p1</PolicyName><PolicyArn>arn:aws:iam::123:policy/p1</PolicyArn></member>
    </AttachedPolicies>
    <IsTruncated>false</IsTruncated>
  </ListAttachedRolePoliciesResult>
</ListAttachedRolePoliciesResponse>`,
		"ListRolePolicies": `<ListRolePoliciesResponse xmlns="https://iam.amazonaws.com/doc/2010-05-08/">
  <ListRolePoliciesResult>
    <PolicyNames><member>zeta</member><member>alpha</member></PolicyNames>
    <IsTruncated>false</IsTruncated>
  </ListRolePoliciesResult>
</ListRolePoliciesResponse>`,
	}
}

func TestGetRole(t *testing.T) {
	result, err := newService(awstest.NewQuery(roleResponses())).handleGetRole(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"role_name": "demo"}})
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	data := result.Data.(map[string]any)
	policy, ok := data["assumeRolePolicy"].(map[string]any)
	if !ok || policy["Version"] != "2012-10-17" {
		t.Fatalf("expected decoded trust policy, got %#v", data["assumeRolePolicy"])
	}
	inline := data["inlinePolicies"].([]string)
	if len(inline) != 2 || inline[0] != "alpha" {
		t.Fatalf("expected sorted inline policies, got %v", inline)
	}
	if result.Metadata.Resources[0] != "arn:aws:iam::123:role/demo" {
		t.Fatalf("unexpected resources: %v", result.Metadata.Resources)
	}
}

func TestGetRoleWithoutPolicies(t *testing.T) {
	rt := awstest.NewQuery(roleResponses())
	result, err := newService(rt).handleGetRole(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"role_name": "demo", "include_policies": false}})
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if _, ok := result.Data.(map[string]any)["attachedPolicies"]; ok {
		t.Fatalf("policies should be omitted")
	}
	if calls := rt.Calls(); len(calls) != 1 {
		t.Fatalf("expected only GetRole, got %v", calls)
	}
}

func TestGetRoleValidation(t *testing.T) {
	_, err := newService(awstest.NewQuery(nil)).handleGetRole(context.Background(), mcp.ToolRequest{Arguments: map[string]any{}})
	if err == nil || !strings.Contains(err.Error(), "role_name is required") {
		t.Fatalf("expected role_name error, got %v", err)
	}
}

func TestGetRoleMissingRoleElement(t *testing.T) {
	rt := awstest.NewQuery(map[string]string{
		"GetRole": `<GetRoleResponse xmlns="https://iam.amazonaws.com/doc/2010-05-08/"><GetRoleResult></GetRoleResult></GetRoleResponse>`,
	})
	_, err := newService(rt).handleGetRole(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"role_name": "ghost"}})
	failure := mcp.Classify(err)
	if failure.Kind != mcp.KindProviderError || failure.Code != "NoSuchEntity" || failure.Message != "role ghost not found" {
		t.Fatalf("unexpected failure: %#v", failure)
	}
}

func TestDecodePolicyDocument(t *testing.T) {
	if got := decodePolicyDocument("%7B%7D"); got != "{}" {
		t.Fatalf("decode: %q", got)
	}
	if got := parseJSONOrString("not json"); got != "not json" {
		t.Fatalf("expected raw string, got %#v", got)
	}
}
