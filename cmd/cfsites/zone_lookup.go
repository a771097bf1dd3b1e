package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v3"
)

func zoneLookupCmd() *cli.Command {
	return &cli.Command{
		Name:      "zone-lookup",
		Usage:     "Find the Route53 hosted zone of a domain and print its manifest snippet",
		ArgsUsage: "<domain>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "profile",
				Usage: "AWS profile to use",
			},
		},
		Action: runZoneLookup,
	}
}

// zoneLister is the part of the Route53 API the lookup uses.
type zoneLister interface {
	ListHostedZonesByName(
		ctx context.Context, params *route53.ListHostedZonesByNameInput, optFns ...func(*route53.Options),
	) (*route53.ListHostedZonesByNameOutput, error)
}

func runZoneLookup(ctx context.Context, cmd *cli.Command) error {
	domain := cmd.Args().First()
	if domain == "" {
		return errors.New("domain argument is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if profile := cmd.String("profile"); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return errors.Wrap(err, "failed to load AWS configuration")
	}

	return doZoneLookup(ctx, route53.NewFromConfig(awsCfg), domain, os.Stdout)
}

func doZoneLookup(ctx context.Context, client zoneLister, domain string, w io.Writer) error {
	zoneName, zoneID, err := lookupZone(ctx, client, domain)
	if err != nil {
		return err
	}

	fqdn := strings.ToLower(strings.TrimSuffix(domain, "."))
	prefix, name := "", fqdn
	if fqdn != zoneName {
		prefix, name, _ = strings.Cut(fqdn, ".")
	}

	writeOutputf(w, "domain:\n")
	writeOutputf(w, "  name: %s\n", name)
	writeOutputf(w, "  hostedZoneId: %s\n", zoneID)
	if name != zoneName {
		writeOutputf(w, "  hostedZoneName: %s\n", zoneName)
	}
	if prefix != "" {
		writeOutputf(w, "urlPrefix: %s\n", prefix)
	}
	return nil
}

// lookupZone returns the public hosted zone that is the closest parent of domain.
func lookupZone(ctx context.Context, client zoneLister, domain string) (name, id string, err error) {
	labels := strings.Split(strings.ToLower(strings.TrimSuffix(domain, ".")), ".")
	for i := range labels {
		candidate := strings.Join(labels[i:], ".")

		out, err := client.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
			DNSName:  aws.String(candidate),
			MaxItems: aws.Int32(10),
		})
		if err != nil {
			return "", "", errors.Wrapf(err, "failed to list hosted zones for %s", candidate)
		}

		for _, zone := range out.HostedZones {
			if strings.TrimSuffix(aws.ToString(zone.Name), ".") != candidate {
				continue
			}
			if zone.Config != nil && zone.Config.PrivateZone {
				continue
			}
			return candidate, strings.TrimPrefix(aws.ToString(zone.Id), "/hostedzone/"), nil
		}
	}

	return "", "", errors.Newf("no public hosted zone found for %s", domain)
}
