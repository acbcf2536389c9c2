package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iot-go-sdk/simulated-device/pkg/errors"
)

// APIVersion is the hub API version sent in the MQTT username.
const APIVersion = "2021-04-12"

// ConnectionString holds the fields of a device connection string,
// e.g. "HostName=hub.example.net;DeviceId=dev1;SharedAccessKey=...".
type ConnectionString struct {
	HostName        string
	DeviceID        string
	ModuleID        string
	SharedAccessKey string
	GatewayHostName string
}

// Credentials is one MQTT login. Password stops working at Expiry.
type Credentials struct {
	Username string
	Password string
	Expiry   time.Time
}

func ParseConnectionString(s string) (*ConnectionString, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.Newf(errors.ErrInvalidConnectionString, "connection string is empty")
	}

	cs := &ConnectionString{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, errors.Newf(errors.ErrInvalidConnectionString, "malformed segment %q", part)
		}
		switch strings.ToLower(key) {
		case "hostname":
			cs.HostName = value
		case "deviceid":
			cs.DeviceID = value
		case "moduleid":
			cs.ModuleID = value
		case "sharedaccesskey":
			cs.SharedAccessKey = value
		case "gatewayhostname":
			cs.GatewayHostName = value
		case "x509":
			if strings.EqualFold(value, "true") {
				return nil, errors.Newf(errors.ErrInvalidConnectionString, "x509 authentication is not supported")
			}
		}
	}

	if err := cs.Validate(); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *ConnectionString) Validate() error {
	if cs.HostName == "" {
		return errors.Newf(errors.ErrInvalidConnectionString, "HostName is required")
	}
	if cs.DeviceID == "" {
		return errors.Newf(errors.ErrInvalidConnectionString, "DeviceId is required")
	}
	if cs.SharedAccessKey == "" {
		return errors.Newf(errors.ErrInvalidConnectionString, "SharedAccessKey is required")
	}
	if _, err := base64.StdEncoding.DecodeString(cs.SharedAccessKey); err != nil {
		return errors.Newf(errors.ErrInvalidConnectionString, "SharedAccessKey is not base64: %v", err)
	}
	return nil
}

// BrokerHost is the host the MQTT session is opened against.
func (cs *ConnectionString) BrokerHost() string {
	if cs.GatewayHostName != "" {
		return cs.GatewayHostName
	}
	return cs.HostName
}

// ClientID is the MQTT client identifier: the device id, or
// "<device>/<module>" for module identities.
func (cs *ConnectionString) ClientID() string {
	if cs.ModuleID != "" {
		return cs.DeviceID + "/" + cs.ModuleID
	}
	return cs.DeviceID
}

// Resource is the audience the SAS token is scoped to.
func (cs *ConnectionString) Resource() string {
	resource := cs.HostName + "/devices/" + cs.DeviceID
	if cs.ModuleID != "" {
		resource += "/modules/" + cs.ModuleID
	}
	return resource
}

// EventTopic is the device-to-cloud topic prefix, without properties.
func (cs *ConnectionString) EventTopic() string {
	if cs.ModuleID != "" {
		return fmt.Sprintf("devices/%s/modules/%s/messages/events/", cs.DeviceID, cs.ModuleID)
	}
	return fmt.Sprintf("devices/%s/messages/events/", cs.DeviceID)
}

// SASToken signs resource with the base64 key, valid until expiry.
func SASToken(resource, key string, expiry time.Time) (string, error) {
	rawKey, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", errors.Wrap(errors.ErrSignToken, err)
	}

	encodedResource := url.QueryEscape(resource)
	se := strconv.FormatInt(expiry.Unix(), 10)
	sig := calculateHMACSHA256(encodedResource+"\n"+se, rawKey)

	return fmt.Sprintf("SharedAccessSignature sr=%s&sig=%s&se=%s",
		encodedResource, url.QueryEscape(sig), se), nil
}

// GenerateMQTTCredentials derives the MQTT login for cs. The password is
// a SAS token valid for ttl from now.
func GenerateMQTTCredentials(cs *ConnectionString, now time.Time, ttl time.Duration) (*Credentials, error) {
	expiry := now.Add(ttl)
	password, err := SASToken(cs.Resource(), cs.SharedAccessKey, expiry)
	if err != nil {
		return nil, err
	}

	return &Credentials{
		Username: fmt.Sprintf("%s/%s/?api-version=%s", cs.HostName, cs.ClientID(), APIVersion),
		Password: password,
		Expiry:   expiry,
	}, nil
}

func calculateHMACSHA256(data string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
