// Package inference wraps the ONNX Runtime environment, sessions and the
// one-time compute device choice shared by both models.
package inference

import (
	"fmt"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

// Device is the compute device sessions are bound to.
type Device int

const (
	// DeviceCPU runs on the default CPU execution provider.
	DeviceCPU Device = iota
	// DeviceCUDA runs on an NVIDIA GPU.
	DeviceCUDA
	// DeviceCoreML runs on the Apple Neural Engine / GPU.
	DeviceCoreML
)

// String returns the device name.
func (d Device) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	case DeviceCUDA:
		return "cuda"
	case DeviceCoreML:
		return "coreml"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// IsAccelerator reports whether d is anything other than the CPU.
func (d Device) IsAccelerator() bool {
	return d == DeviceCUDA || d == DeviceCoreML
}

// Policy values accepted by SelectDevice.
const (
	PolicyAuto = "auto"
	PolicyCPU  = "cpu"
)

// SelectDevice picks the device once at startup: the first accelerator whose
// execution provider the runtime accepts, otherwise the CPU. Initialize must
// have been called.
func SelectDevice(policy string) Device {
	if policy == PolicyCPU || !Initialized() {
		return DeviceCPU
	}
	for _, d := range candidates() {
		if probe(d) == nil {
			return d
		}
	}
	return DeviceCPU
}

func candidates() []Device {
	if runtime.GOOS == "darwin" {
		return []Device{DeviceCoreML}
	}
	return []Device{DeviceCUDA}
}

// probe checks that the execution provider for d can be appended to a
// throwaway set of session options.
func probe(d Device) error {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return err
	}
	defer options.Destroy()
	return appendProvider(options, d)
}

func appendProvider(options *ort.SessionOptions, d Device) error {
	switch d {
	case DeviceCPU:
		return nil
	case DeviceCUDA:
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return err
		}
		defer cudaOptions.Destroy()
		return options.AppendExecutionProviderCUDA(cudaOptions)
	case DeviceCoreML:
		// Flag 0 = default settings, use Neural Engine + GPU
		return options.AppendExecutionProviderCoreML(0)
	default:
		return fmt.Errorf("unsupported device %s", d)
	}
}
