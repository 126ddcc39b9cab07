package payload

import "fmt"

// Connection types.
const (
	TypeAmazonS3       = "AmazonS3"
	TypeAzureBlob      = "AzureBlob"
	TypeGoogleBigQuery = "GoogleBigQuery"
	TypeAnaplan        = "Anaplan"
)

// AzureBlobConnection is the body of an Azure Blob Storage connection.
type AzureBlobConnection struct {
	Name               string `json:"name"`
	StorageAccountName string `json:"storageAccountName"`
	ContainerName      string `json:"containerName"`
	SASToken           string `json:"sasToken"`
	WorkspaceID        string `json:"workspaceId,omitempty"`
}

func (c AzureBlobConnection) validate() error {
	return requireFields("AzureBlob connection",
		present("name", c.Name),
		present("storageAccountName", c.StorageAccountName),
		present("containerName", c.ContainerName),
		present("sasToken", c.SASToken),
	)
}

// S3Connection is the body of an Amazon S3 connection.
type S3Connection struct {
	Name            string `json:"name"`
	BucketName      string `json:"bucketName"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	WorkspaceID     string `json:"workspaceId,omitempty"`
}

func (c S3Connection) validate() error {
	return requireFields("AmazonS3 connection",
		present("name", c.Name),
		present("bucketName", c.BucketName),
		present("accessKeyId", c.AccessKeyID),
		present("secretAccessKey", c.SecretAccessKey),
	)
}

// ServiceAccountKey is a Google service account key file. Its keys are
// snake_case on the wire.
type ServiceAccountKey struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// BigQueryConnection is the body of a Google BigQuery connection.
type BigQueryConnection struct {
	Name              string             `json:"name"`
	Dataset           string             `json:"dataset"`
	ServiceAccountKey *ServiceAccountKey `json:"serviceAccountKey"`
	WorkspaceID       string             `json:"workspaceId,omitempty"`
}

func (c BigQueryConnection) validate() error {
	if err := requireFields("GoogleBigQuery connection",
		present("name", c.Name),
		present("dataset", c.Dataset),
		field{"serviceAccountKey", c.ServiceAccountKey != nil},
	); err != nil {
		return err
	}

	k := c.ServiceAccountKey

	return requireFields("serviceAccountKey",
		present("type", k.Type),
		present("project_id", k.ProjectID),
		present("private_key_id", k.PrivateKeyID),
		present("private_key", k.PrivateKey),
		present("client_email", k.ClientEmail),
		present("client_id", k.ClientID),
	)
}

// connectionBody decodes in into the connection variant for typ.
func connectionBody(typ string, in map[string]any) (validator, error) {
	var v validator

	switch typ {
	case TypeAzureBlob:
		v = &AzureBlobConnection{}
	case TypeAmazonS3:
		v = &S3Connection{}
	case TypeGoogleBigQuery:
		v = &BigQueryConnection{}
	default:
		return nil, oneOf("connection", "type", typ, TypeAmazonS3, TypeAzureBlob, TypeGoogleBigQuery)
	}

	if err := decode(in, v); err != nil {
		return nil, err
	}

	return v, nil
}

// ConnectionType returns the connection variant a body describes: a SAS
// token means Azure Blob, a secret access key means S3, anything else is
// BigQuery.
func ConnectionType(in map[string]any) string {
	has := func(camel, snake string) bool {
		_, a := in[camel]
		_, b := in[snake]

		return a || b
	}

	switch {
	case has("sasToken", "sas_token"):
		return TypeAzureBlob
	case has("secretAccessKey", "secret_access_key"):
		return TypeAmazonS3
	default:
		return TypeGoogleBigQuery
	}
}

// Connection builds a connection body, selecting the variant from its keys.
func Connection(in map[string]any) (map[string]any, error) {
	v, err := connectionBody(ConnectionType(in), in)
	if err != nil {
		return nil, err
	}

	return Build(v)
}

// ConnectionInput builds a {type, body} connection creation payload. When
// type is absent it is derived from the body.
func ConnectionInput(in map[string]any) (map[string]any, error) {
	in, _ = camelKeys(in).(map[string]any)

	body, ok := in["body"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: connection input is missing body", ErrInvalidPayload)
	}

	typ, _ := in["type"].(string)
	if typ == "" {
		typ = ConnectionType(body)
	}

	v, err := connectionBody(typ, body)
	if err != nil {
		return nil, err
	}

	out, err := Build(v)
	if err != nil {
		return nil, err
	}

	return map[string]any{"type": typ, "body": out}, nil
}
