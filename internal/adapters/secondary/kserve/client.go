package kserve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"ml-pipeline-nodes/internal/config"
	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

var inferenceServiceGVR = schema.GroupVersionResource{
	Group:    "serving.kserve.io",
	Version:  "v1beta1",
	Resource: "inferenceservices",
}

// Model configuration keys that locate the InferenceService of a model.
const (
	configInferenceService = "inference_service"
	configNamespace        = "inference_namespace"
)

type adapterBuilder struct {
	client      dynamic.Interface
	httpClient  *http.Client
	annotations ports.AnnotationRepository
	enabled     bool
	defaultNS   string
}

// NewAdapterBuilder creates an adapter builder that serves models deployed
// as KServe InferenceServices.
func NewAdapterBuilder(cfg *config.KubernetesConfig, annotations ports.AnnotationRepository) (ports.AdapterBuilder, error) {
	if !cfg.Enabled {
		return &adapterBuilder{enabled: false}, nil
	}

	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		// Try default kubeconfig location
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	timeout := cfg.PredictTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return newAdapterBuilder(client, &http.Client{Timeout: timeout}, cfg.DefaultNS, annotations), nil
}

func newAdapterBuilder(client dynamic.Interface, httpClient *http.Client, defaultNS string, annotations ports.AnnotationRepository) *adapterBuilder {
	if defaultNS == "" {
		defaultNS = "model-serving"
	}
	return &adapterBuilder{
		client:      client,
		httpClient:  httpClient,
		annotations: annotations,
		enabled:     true,
		defaultNS:   defaultNS,
	}
}

func (b *adapterBuilder) IsAvailable() bool {
	return b.enabled
}

// Build resolves the InferenceService serving model and returns an adapter
// bound to its predictor URL. The service must report Ready.
func (b *adapterBuilder) Build(ctx context.Context, model *domain.Model) (ports.ModelAdapter, error) {
	if !b.enabled {
		return nil, domain.ErrAdapterNotAvailable
	}

	name := cast.ToString(model.ConfigValue(configInferenceService, ""))
	if name == "" {
		name = "model-" + model.ID
	}
	namespace := cast.ToString(model.ConfigValue(configNamespace, b.defaultNS))

	obj, err := b.client.Resource(inferenceServiceGVR).
		Namespace(namespace).
		Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrInferenceServiceMissing, namespace, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get kserve inferenceservice: %w", err)
	}

	status := parseStatus(obj)
	if !status.Ready || status.URL == "" {
		return nil, fmt.Errorf("%w: %s/%s: %s", domain.ErrInferenceServiceNotReady, namespace, name, status.Error)
	}

	log.WithFields(log.Fields{
		"model_id":          model.ID,
		"inference_service": name,
		"namespace":         namespace,
		"url":               status.URL,
	}).Info("resolved kserve inference service")

	return &inferenceAdapter{
		model:       model,
		serviceName: name,
		baseURL:     status.URL,
		httpClient:  b.httpClient,
		annotations: b.annotations,
	}, nil
}

type serviceStatus struct {
	URL   string
	Ready bool
	Error string
}

func parseStatus(obj *unstructured.Unstructured) serviceStatus {
	status := serviceStatus{}

	statusMap, found, _ := unstructured.NestedMap(obj.Object, "status")
	if !found {
		return status
	}

	status.URL, _, _ = unstructured.NestedString(statusMap, "url")

	conditions, found, _ := unstructured.NestedSlice(statusMap, "conditions")
	if found {
		for _, cond := range conditions {
			condMap, ok := cond.(map[string]interface{})
			if !ok {
				continue
			}
			condType, _ := condMap["type"].(string)
			condStatus, _ := condMap["status"].(string)

			if condType == "Ready" {
				status.Ready = condStatus == "True"
				if condStatus == "False" {
					if msg, ok := condMap["message"].(string); ok {
						status.Error = msg
					}
				}
				break
			}
		}
	}

	return status
}

// Ensure interface compliance
var _ ports.AdapterBuilder = (*adapterBuilder)(nil)
