package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/novodl/novodl/internal/model"
)

// DeliveryYAMLRepository loads delivery descriptions from YAML files, used
// by the download command as an alternative to pasting the vendor email.
type DeliveryYAMLRepository struct {
	fs fs.FS
}

// NewDeliveryYAMLRepository creates a new YAML delivery repository.
func NewDeliveryYAMLRepository(filesystem fs.FS) *DeliveryYAMLRepository {
	return &DeliveryYAMLRepository{fs: filesystem}
}

// GetDelivery loads a delivery from a YAML file and returns a validated
// domain model.
func (r *DeliveryYAMLRepository) GetDelivery(ctx context.Context, path string) (model.Delivery, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Delivery{}, fmt.Errorf("reading delivery file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Delivery{}, ctx.Err()
	}

	var d Delivery
	if err := yaml.Unmarshal(data, &d); err != nil {
		return model.Delivery{}, fmt.Errorf("parsing YAML: %w", err)
	}

	md := d.toModel()
	if err := md.Validate(); err != nil {
		return model.Delivery{}, fmt.Errorf("invalid delivery: %w", err)
	}

	return md, nil
}

// Delivery represents the YAML structure of a delivery file.
type Delivery struct {
	DataPath    string `yaml:"data_path"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ReleaseDate string `yaml:"release_date"`
	ExpireDate  string `yaml:"expire_date"`
	TotalSize   string `yaml:"total_size"`
	SampleCount string `yaml:"sample_count"`
	SampleNames string `yaml:"sample_names"`
	BatchInfo   string `yaml:"batch_info"`
	Notes       string `yaml:"notes"`
}

func (d Delivery) toModel() model.Delivery {
	return model.Delivery{
		DataPath:    d.DataPath,
		Username:    d.Username,
		Password:    d.Password,
		ReleaseDate: d.ReleaseDate,
		ExpireDate:  d.ExpireDate,
		TotalSize:   d.TotalSize,
		SampleCount: d.SampleCount,
		SampleNames: d.SampleNames,
		BatchInfo:   d.BatchInfo,
		Notes:       d.Notes,
	}
}
