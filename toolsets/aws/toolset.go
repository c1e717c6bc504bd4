package aws

import (
	"context"
	"fmt"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"awsdev/internal/cache"
	"awsdev/internal/mcp"
	"awsdev/internal/session"
	awsdynamodb "awsdev/toolsets/aws/dynamodb"
	awsec2 "awsdev/toolsets/aws/ec2"
	awsecr "awsdev/toolsets/aws/ecr"
	awseks "awsdev/toolsets/aws/eks"
	awsiam "awsdev/toolsets/aws/iam"
	awskms "awsdev/toolsets/aws/kms"
	awsknowledgebase "awsdev/toolsets/aws/knowledgebase"
	awssts "awsdev/toolsets/aws/sts"
)

type Toolset struct {
	ctx     mcp.ToolsetContext
	sts     *clientCache[*sts.Client]
	ddb     *clientCache[*dynamodb.Client]
	bedrock *clientCache[*bedrockagentruntime.Client]
	ec2     *clientCache[*ec2.Client]
	ecr     *clientCache[*ecr.Client]
	eks     *clientCache[*eks.Client]
	iam     *clientCache[*iam.Client]
	kms     *clientCache[*kms.Client]
}

func New() *Toolset {
	return &Toolset{}
}

func init() {
	mcp.MustRegisterToolset("aws", func() mcp.Toolset {
		return New()
	})
}

func (t *Toolset) ID() string {
	return "aws"
}

func (t *Toolset) Version() string {
	return "0.1.0"
}

func (t *Toolset) Init(ctx mcp.ToolsetContext) error {
	t.ctx = ctx
	t.sts = newClientCache(func(cfg sdkaws.Config) *sts.Client { return sts.NewFromConfig(cfg) })
	t.ddb = newClientCache(func(cfg sdkaws.Config) *dynamodb.Client { return dynamodb.NewFromConfig(cfg) })
	t.bedrock = newClientCache(func(cfg sdkaws.Config) *bedrockagentruntime.Client { return bedrockagentruntime.NewFromConfig(cfg) })
	t.ec2 = newClientCache(func(cfg sdkaws.Config) *ec2.Client { return ec2.NewFromConfig(cfg) })
	t.ecr = newClientCache(func(cfg sdkaws.Config) *ecr.Client { return ecr.NewFromConfig(cfg) })
	t.eks = newClientCache(func(cfg sdkaws.Config) *eks.Client { return eks.NewFromConfig(cfg) })
	t.iam = newClientCache(func(cfg sdkaws.Config) *iam.Client { return iam.NewFromConfig(cfg) })
	t.kms = newClientCache(func(cfg sdkaws.Config) *kms.Client { return kms.NewFromConfig(cfg) })
	return nil
}

func (t *Toolset) Register(reg mcp.Registry) error {
	groups := [][]mcp.ToolSpec{
		awssts.ToolSpecs(t.ctx, t.ID(), t.stsClient),
		awsdynamodb.ToolSpecs(t.ctx, t.ID(), t.dynamoClient),
		awsknowledgebase.ToolSpecs(t.ctx, t.ID(), t.bedrockClient, t.accountID),
		awsec2.ToolSpecs(t.ctx, t.ID(), t.ec2Client),
		awsecr.ToolSpecs(t.ctx, t.ID(), t.ecrClient),
		awseks.ToolSpecs(t.ctx, t.ID(), t.eksClient),
		awsiam.ToolSpecs(t.ctx, t.ID(), t.iamClient),
		awskms.ToolSpecs(t.ctx, t.ID(), t.kmsClient),
	}
	for _, specs := range groups {
		for _, tool := range specs {
			tool = t.wrapListCache(tool)
			if err := reg.Register(tool); err != nil {
				return fmt.Errorf("register %s: %w", tool.Name, err)
			}
		}
	}
	return nil
}

func (t *Toolset) stsClient(_ context.Context, sess *session.Session, region string) (*sts.Client, string, error) {
	return t.sts.get(sess, region)
}

func (t *Toolset) dynamoClient(_ context.Context, sess *session.Session, region string) (awsdynamodb.API, string, error) {
	client, usedRegion, err := t.ddb.get(sess, region)
	if err != nil {
		return nil, "", err
	}
	return client, usedRegion, nil
}

func (t *Toolset) bedrockClient(_ context.Context, sess *session.Session, region string) (awsknowledgebase.API, string, error) {
	client, usedRegion, err := t.bedrock.get(sess, region)
	if err != nil {
		return nil, "", err
	}
	return client, usedRegion, nil
}

func (t *Toolset) ec2Client(_ context.Context, sess *session.Session, region string) (*ec2.Client, string, error) {
	return t.ec2.get(sess, region)
}

func (t *Toolset) ecrClient(_ context.Context, sess *session.Session, region string) (*ecr.Client, string, error) {
	return t.ecr.get(sess, region)
}

func (t *Toolset) eksClient(_ context.Context, sess *session.Session, region string) (*eks.Client, string, error) {
	return t.eks.get(sess, region)
}

func (t *Toolset) iamClient(_ context.Context, sess *session.Session, region string) (*iam.Client, string, error) {
	return t.iam.get(sess, region)
}

func (t *Toolset) kmsClient(_ context.Context, sess *session.Session, region string) (*kms.Client, string, error) {
	return t.kms.get(sess, region)
}

// accountID looks up the caller account once per session.
func (t *Toolset) accountID(ctx context.Context, sess *session.Session) (string, error) {
	if sess == nil {
		return "", errNoSession
	}
	key := cache.ProfileScope(sess.Profile()) + "account:" + strconv.FormatUint(sess.Serial(), 10)
	if cached, ok := t.ctx.Cache.Get(key); ok {
		if account, ok := cached.(string); ok {
			return account, nil
		}
	}
	client, _, err := t.stsClient(ctx, sess, "")
	if err != nil {
		return "", err
	}
	account, err := awssts.AccountID(ctx, client)
	if err != nil {
		return "", err
	}
	if ttl := time.Until(sess.ExpiresAt()); ttl > 0 {
		t.ctx.Cache.Set(key, account, ttl)
	}
	return account, nil
}
